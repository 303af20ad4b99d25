package view

import (
	"container/list"

	"lumina-cli/internal/chat"
)

// memoCap bounds the projection memo. Long histories re-project on
// scroll-back past the cap rather than growing without limit.
const memoCap = 500

type memoKey struct {
	id         string
	contentLen int
}

type memoEntry struct {
	key  memoKey
	proj Projection
}

// Memo caches projections keyed by message id and content length.
// Content only grows during streaming and is immutable after
// finalization, so length is a sufficient version stamp. Least
// recently used entries are evicted at capacity. Not safe for
// concurrent use; the TUI drives it from a single goroutine.
type Memo struct {
	order *list.List
	items map[memoKey]*list.Element
}

func NewMemo() *Memo {
	return &Memo{
		order: list.New(),
		items: make(map[memoKey]*list.Element),
	}
}

// Project returns the cached projection for msg, computing and
// storing it on a miss.
func (m *Memo) Project(msg chat.Message) Projection {
	key := memoKey{id: msg.ID, contentLen: len(msg.Content)}
	if el, ok := m.items[key]; ok {
		m.order.MoveToFront(el)
		return el.Value.(*memoEntry).proj
	}

	proj := Project(msg)
	el := m.order.PushFront(&memoEntry{key: key, proj: proj})
	m.items[key] = el

	if m.order.Len() > memoCap {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoEntry).key)
	}
	return proj
}

// Len reports how many projections are cached.
func (m *Memo) Len() int {
	return m.order.Len()
}
