package store

import (
	"context"
	"sync"
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
)

// Memory is the in-process Store used for tests and single-node play.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Doc
	subs map[string]map[int]chan Doc
	next int
}

func NewMemory() *Memory {
	return &Memory{
		docs: map[string]Doc{},
		subs: map[string]map[int]chan Doc{},
	}
}

func (m *Memory) Get(_ context.Context, code string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[code]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) Create(_ context.Context, doc Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.Code]; ok {
		return ErrExists
	}
	doc.UpdatedAt = time.Now().UTC()
	m.docs[doc.Code] = doc
	return nil
}

func (m *Memory) ClaimSeat(_ context.Context, code string, seat engine.Seat, playerID string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[code]
	if !ok {
		return Doc{}, ErrNotFound
	}
	if holder, ok := doc.Seats[seat]; ok && holder != "" && holder != playerID {
		return Doc{}, ErrSeatTaken
	}
	seats := make(map[engine.Seat]string, len(doc.Seats)+1)
	for k, v := range doc.Seats {
		seats[k] = v
	}
	seats[seat] = playerID
	doc.Seats = seats
	doc.Rev++
	doc.UpdatedAt = time.Now().UTC()
	m.docs[code] = doc
	m.publish(code, doc)
	return doc, nil
}

func (m *Memory) Update(_ context.Context, doc Doc) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[doc.Code]
	if !ok {
		return Doc{}, ErrNotFound
	}
	if cur.Rev != doc.Rev {
		return Doc{}, ErrRevisionConflict
	}
	doc.Rev++
	doc.UpdatedAt = time.Now().UTC()
	m.docs[doc.Code] = doc
	m.publish(doc.Code, doc)
	return doc, nil
}

func (m *Memory) Watch(ctx context.Context, code string) (<-chan Doc, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	ch := make(chan Doc, 8)
	if m.subs[code] == nil {
		m.subs[code] = map[int]chan Doc{}
	}
	m.subs[code][id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[code][id]; ok {
			delete(m.subs[code], id)
			close(sub)
		}
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

// publish fans out under the lock. Full subscriber buffers lose the
// intermediate revision, not the subscription; the next write catches them
// up.
func (m *Memory) publish(code string, doc Doc) {
	for _, ch := range m.subs[code] {
		select {
		case ch <- doc:
		default:
		}
	}
}
