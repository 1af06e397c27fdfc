// Package segcache keeps fetched cue payloads around so that replaying or
// seeking back into a video does not hit the network again.
package segcache

import (
	"container/list"
	"context"
	"sync"

	"github.com/forPelevin/cuesync/internal/ports"
)

const (
	DefaultMaxEntries = 3
	DefaultMaxBytes   = 12 << 20
)

// entry holds everything fetched for one content id.
type entry struct {
	id       string
	segCount int
	segs     [][]byte
	view     []byte
	legacy   []byte
	hasSegs  bool
	hasView  bool
	hasLeg   bool
	size     int
}

func (e *entry) resize() {
	n := len(e.view) + len(e.legacy)
	for _, s := range e.segs {
		n += len(s)
	}
	e.size = n
}

// Memory is an LRU in front of a fetcher, bounded by content ids and bytes.
// Only complete, error free results are kept. An id whose payloads exceed
// the byte limit is never cached.
type Memory struct {
	next       ports.SegmentFetcher
	maxEntries int
	maxBytes   int

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
	bytes int
}

func NewMemory(next ports.SegmentFetcher, maxEntries, maxBytes int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Memory{
		next:       next,
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		order:      list.New(),
		items:      map[string]*list.Element{},
	}
}

func (m *Memory) FetchSegments(ctx context.Context, id string, count int) ([][]byte, error) {
	m.mu.Lock()
	if e := m.lookup(id); e != nil && e.hasSegs && e.segCount == count {
		segs := e.segs
		m.mu.Unlock()
		return segs, nil
	}
	m.mu.Unlock()

	segs, err := m.next.FetchSegments(ctx, id, count)
	if err != nil || len(segs) == 0 {
		return segs, err
	}
	m.update(id, func(e *entry) {
		e.segCount, e.segs, e.hasSegs = count, segs, true
	})
	return segs, nil
}

func (m *Memory) FetchView(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	if e := m.lookup(id); e != nil && e.hasView {
		b := e.view
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	b, err := m.next.FetchView(ctx, id)
	if err != nil {
		return b, err
	}
	m.update(id, func(e *entry) { e.view, e.hasView = b, true })
	return b, nil
}

func (m *Memory) FetchLegacy(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	if e := m.lookup(id); e != nil && e.hasLeg {
		b := e.legacy
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	b, err := m.next.FetchLegacy(ctx, id)
	if err != nil || len(b) == 0 {
		return b, err
	}
	m.update(id, func(e *entry) { e.legacy, e.hasLeg = b, true })
	return b, nil
}

// Len reports the number of cached ids and their total payload size.
func (m *Memory) Len() (entries, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len(), m.bytes
}

// lookup marks id as most recently used. Caller holds mu.
func (m *Memory) lookup(id string) *entry {
	el, ok := m.items[id]
	if !ok {
		return nil
	}
	m.order.MoveToFront(el)
	return el.Value.(*entry)
}

func (m *Memory) update(id string, fn func(*entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[id]
	var e *entry
	if ok {
		e = el.Value.(*entry)
		m.bytes -= e.size
	} else {
		e = &entry{id: id}
	}
	fn(e)
	e.resize()
	if e.size > m.maxBytes {
		if ok {
			m.order.Remove(el)
			delete(m.items, id)
		}
		return
	}
	if ok {
		m.order.MoveToFront(el)
	} else {
		m.items[id] = m.order.PushFront(e)
	}
	m.bytes += e.size

	for m.order.Len() > m.maxEntries || m.bytes > m.maxBytes {
		last := m.order.Back()
		if last == nil {
			break
		}
		old := last.Value.(*entry)
		m.order.Remove(last)
		delete(m.items, old.id)
		m.bytes -= old.size
	}
}
