package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"chalkboard/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// slotWriter — serialized, coalescing background writes of one slot
// ─────────────────────────────────────────────────────────────

// slotWriter owns all writes to a single slot. Callers hand it a snapshot
// and return immediately; a goroutine JSON-encodes the newest snapshot and
// overwrites the slot. Snapshots that are superseded before the goroutine
// gets to them are skipped, so writes stay in submission order.
type slotWriter struct {
	key     string
	slots   domain.SlotStore
	timeout time.Duration
	log     *logrus.Entry
	// onWrite is called after every Put attempt, from the writer goroutine.
	onWrite func(key string, err error)

	mu         sync.Mutex
	pending    any
	hasPending bool
	busy       bool
	idle       chan struct{} // closed while nothing is pending or in flight
	closed     bool
	// digest is the hash of the bytes the slot last held as far as this
	// writer knows: the last successful Put, or what Load read.
	digest uint64

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newSlotWriter(key string, slots domain.SlotStore, timeout time.Duration, onWrite func(string, error)) *slotWriter {
	idle := make(chan struct{})
	close(idle)
	w := &slotWriter{
		key:     key,
		slots:   slots,
		timeout: timeout,
		log:     logrus.WithField("slot", key),
		onWrite: onWrite,
		idle:    idle,
		digest:  xxhash.Sum64(nil),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// submit queues snapshot as the next value of the slot. The snapshot must
// not be mutated afterwards.
func (w *slotWriter) submit(snapshot any) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("slot writer closed, dropping write")
		return
	}
	w.pending = snapshot
	w.hasPending = true
	if !w.busy {
		w.busy = true
		w.idle = make(chan struct{})
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *slotWriter) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *slotWriter) drain() {
	for {
		w.mu.Lock()
		if !w.hasPending {
			if w.busy {
				w.busy = false
				close(w.idle)
			}
			w.mu.Unlock()
			return
		}
		snapshot := w.pending
		w.pending = nil
		w.hasPending = false
		w.mu.Unlock()

		w.write(snapshot)
	}
}

func (w *slotWriter) write(snapshot any) {
	data, err := json.Marshal(snapshot)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err = w.slots.Put(ctx, w.key, data)
		cancel()
	}
	if err == nil {
		w.noteDigest(data)
	}
	if err != nil {
		// Not retried: memory stays authoritative until the next mutation.
		w.log.WithError(err).Error("persist slot failed")
	} else {
		w.log.WithField("bytes", len(data)).Debug("slot persisted")
	}
	if w.onWrite != nil {
		w.onWrite(w.key, err)
	}
}

// noteDigest records data as the slot's current content.
func (w *slotWriter) noteDigest(data []byte) {
	sum := xxhash.Sum64(data)
	w.mu.Lock()
	w.digest = sum
	w.mu.Unlock()
}

// holds reports whether data is what this writer last saw in the slot.
func (w *slotWriter) holds(data []byte) bool {
	sum := xxhash.Sum64(data)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.digest == sum
}

// waitIdle blocks until every submitted snapshot has been written or ctx ends.
func (w *slotWriter) waitIdle(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close writes whatever is pending and stops the goroutine. Idempotent.
func (w *slotWriter) close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
	} else {
		w.closed = true
		w.mu.Unlock()
		close(w.stop)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
