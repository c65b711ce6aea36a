package index

import (
	"fmt"
	"iter"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

// DefaultFlushThreshold is the buffered-add count that wakes the flush
// worker when BufferedConfig leaves it unset.
const DefaultFlushThreshold = 128

// BufferedConfig tunes a Buffered wrapper.
type BufferedConfig struct {
	// FlushThreshold is how many buffered adds accumulate before the
	// worker folds them into the underlying index in one write-locked
	// batch.
	FlushThreshold int
	// Logger receives flush events at debug level. Defaults to a nop.
	Logger *zap.Logger
}

// Buffered layers a read/write lock, a concurrent add-buffer and a
// background flush worker over a raw index, so many readers and a writer
// can share it.
//
// Adds land in the buffer under the read lock and are immediately visible
// to readers; a background worker folds them into the underlying index in
// batches under the write lock, amortising its cost. Removes and the
// flush are the only structural writes and both take the write lock.
//
// Query sequences acquire the read lock when iteration starts and release
// it when the loop ends (including early break), so results are stable
// for the lifetime of the iterator. Do not call Add, Remove or Close from
// inside a query loop.
type Buffered[El comparable, E Entry[El]] struct {
	inner     Index[El, E]
	mu        sync.RWMutex
	buf       mapset.Set[E]
	threshold int
	log       *zap.Logger

	notify    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBuffered wraps inner and starts the flush worker. The wrapper owns
// inner from here on: touching it directly bypasses the lock.
func NewBuffered[El comparable, E Entry[El]](inner Index[El, E], cfg BufferedConfig) *Buffered[El, E] {
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = DefaultFlushThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	b := &Buffered[El, E]{
		inner:     inner,
		buf:       mapset.NewSet[E](),
		threshold: cfg.FlushThreshold,
		log:       cfg.Logger,
		notify:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

// Close drains the buffer into the underlying index and stops the
// worker. The wrapper must not be used afterwards.
func (b *Buffered[El, E]) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
	})
	return nil
}

func (b *Buffered[El, E]) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			b.flush(true)
			return
		case <-b.notify:
			if b.buf.Cardinality() >= b.threshold {
				b.flush(false)
			}
		}
	}
}

func (b *Buffered[El, E]) flush(final bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.buf.ToSlice()
	for _, e := range batch {
		if err := b.inner.Add(e); err != nil {
			// Entries are validated before they reach the buffer.
			panic(fmt.Sprintf("index: buffered flush: %v", err))
		}
	}
	b.buf.Clear()
	if len(batch) > 0 {
		b.log.Debug("flushed add buffer", zap.Int("entries", len(batch)), zap.Bool("final", final))
	}
}

func (b *Buffered[El, E]) Add(e E) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ok, err := b.inner.Contains(e)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if b.buf.Add(e) {
		select {
		case b.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *Buffered[El, E]) Remove(e E) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Contains(e) {
		b.buf.Remove(e)
		return nil
	}
	return b.inner.Remove(e)
}

func (b *Buffered[El, E]) Contains(e E) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ok, err := b.inner.Contains(e)
	if err != nil || ok {
		return ok, err
	}
	return b.buf.Contains(e), nil
}

// RLock freezes the wrapper for a multi-query section: no flush or
// remove can run until RUnlock. The wrapper's own methods manage the
// lock themselves and must not be called while it is held.
func (b *Buffered[El, E]) RLock() { b.mu.RLock() }

// RUnlock releases RLock.
func (b *Buffered[El, E]) RUnlock() { b.mu.RUnlock() }

// query builds a lazy sequence over the inner result plus the matching
// buffered entries. The buffer and the inner index are disjoint (Add
// refuses entries the inner index already has), so no deduplication is
// needed.
func (b *Buffered[El, E]) query(q E, inner func(q E) (iter.Seq[E], error), match func(cand, q map[El]struct{}) bool) (iter.Seq[E], error) {
	b.mu.RLock()
	_, err := b.inner.Contains(q)
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return func(yield func(E) bool) {
		b.mu.RLock()
		defer b.mu.RUnlock()
		seq, err := inner(q)
		if err != nil {
			return
		}
		for e := range seq {
			if !yield(e) {
				return
			}
		}
		qset := elementSet(q.Elements())
		for _, e := range b.buf.ToSlice() {
			if match(elementSet(e.Elements()), qset) && !yield(e) {
				return
			}
		}
	}, nil
}

func (b *Buffered[El, E]) Subsets(q E) (iter.Seq[E], error) {
	return b.query(q, b.inner.Subsets, isSubset[El])
}

func (b *Buffered[El, E]) Supersets(q E) (iter.Seq[E], error) {
	return b.query(q, b.inner.Supersets, isSuperset[El])
}

func (b *Buffered[El, E]) NumSubsets(q E) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.inner.NumSubsets(q)
	if err != nil {
		return 0, err
	}
	return n + b.countBuffered(q, isSubset[El]), nil
}

func (b *Buffered[El, E]) NumSupersets(q E) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.inner.NumSupersets(q)
	if err != nil {
		return 0, err
	}
	return n + b.countBuffered(q, isSuperset[El]), nil
}

func (b *Buffered[El, E]) countBuffered(q E, match func(cand, q map[El]struct{}) bool) int {
	qset := elementSet(q.Elements())
	n := 0
	for _, e := range b.buf.ToSlice() {
		if match(elementSet(e.Elements()), qset) {
			n++
		}
	}
	return n
}

func (b *Buffered[El, E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		b.mu.RLock()
		defer b.mu.RUnlock()
		for e := range b.inner.All() {
			if !yield(e) {
				return
			}
		}
		for _, e := range b.buf.ToSlice() {
			if !yield(e) {
				return
			}
		}
	}
}

func (b *Buffered[El, E]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.inner.Size() + b.buf.Cardinality()
}

func elementSet[El comparable](elems []El) map[El]struct{} {
	s := make(map[El]struct{}, len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

func isSubset[El comparable](cand, q map[El]struct{}) bool {
	for e := range cand {
		if _, ok := q[e]; !ok {
			return false
		}
	}
	return true
}

func isSuperset[El comparable](cand, q map[El]struct{}) bool {
	for e := range q {
		if _, ok := cand[e]; !ok {
			return false
		}
	}
	return true
}
