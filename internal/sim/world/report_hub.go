package world

import (
	"sync"

	"go.uber.org/zap"
)

// reportHub fans pass reports out to subscribers. Slow subscribers lose the
// oldest report instead of stalling the loop.
type reportHub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan TickLogEntry
}

// Subscribe returns a channel of pass reports and a cancel func. Safe from
// any goroutine.
func (w *World) Subscribe(buf int) (<-chan TickLogEntry, func()) {
	return w.hub.subscribe(buf)
}

func (h *reportHub) subscribe(buf int) (<-chan TickLogEntry, func()) {
	if buf <= 0 {
		buf = 1
	}
	ch := make(chan TickLogEntry, buf)
	h.mu.Lock()
	if h.subs == nil {
		h.subs = map[int]chan TickLogEntry{}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *reportHub) publish(e TickLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		sendLatest(ch, e)
	}
}

func sendLatest(ch chan TickLogEntry, e TickLogEntry) {
	select {
	case ch <- e:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- e:
	default:
	}
}

// publishPass writes the finished pass to the tick log and subscribers.
func (w *World) publishPass() {
	e := TickLogEntry{TickStats: w.pass, Population: len(w.actors), Digest: w.stateDigest()}
	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(e); err != nil {
			w.log.Warn("tick log write failed", zap.Int64("tick", e.Tick), zap.Error(err))
		}
	}
	w.hub.publish(e)
}
