package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shinyyama/boilagbe-backend/internal/model"
	"gorm.io/gorm"
)

// MockMessageRepository keeps messages in memory and mirrors the SQL semantics of the real repository.
type MockMessageRepository struct {
	mu        sync.Mutex
	messages  map[uint64]*model.Message
	nextID    uint64
	createErr error
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{messages: make(map[uint64]*model.Message), nextID: 1}
}

func (m *MockMessageRepository) Create(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	msg.ID = m.nextID
	m.nextID++
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *MockMessageRepository) FindByID(_ context.Context, id uint64) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[id]; ok {
		cp := *msg
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) filter(keep func(*model.Message) bool, desc bool) []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Message, 0)
	for _, msg := range m.messages {
		if keep(msg) {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID < b.ID
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return out
}

func between(a, b string) func(*model.Message) bool {
	return func(msg *model.Message) bool {
		return (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a)
	}
}

func unreadFrom(sender, receiver string) func(*model.Message) bool {
	return func(msg *model.Message) bool {
		return msg.SenderID == sender && msg.ReceiverID == receiver && msg.Unread()
	}
}

func (m *MockMessageRepository) ListConversation(_ context.Context, a, b string) ([]model.Message, error) {
	return m.filter(between(a, b), false), nil
}

func (m *MockMessageRepository) Latest(_ context.Context, a, b string) (*model.Message, error) {
	list := m.filter(between(a, b), true)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (m *MockMessageRepository) ListUnread(_ context.Context, sender, receiver string) ([]model.Message, error) {
	return m.filter(unreadFrom(sender, receiver), false), nil
}

func (m *MockMessageRepository) CountUnread(_ context.Context, sender, receiver string) (int64, error) {
	return int64(len(m.filter(unreadFrom(sender, receiver), false))), nil
}

func (m *MockMessageRepository) stamp(keep func(*model.Message) bool, at time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if keep(msg) && !msg.Timestamp.After(at) {
			t := at
			msg.LastReadAt = &t
			n++
		}
	}
	return n
}

func (m *MockMessageRepository) MarkRead(_ context.Context, sender, receiver string, at time.Time) (int64, error) {
	return m.stamp(unreadFrom(sender, receiver), at), nil
}

func (m *MockMessageRepository) MarkMessageRead(_ context.Context, id uint64, receiver string, at time.Time) (int64, error) {
	return m.stamp(func(msg *model.Message) bool {
		return msg.ID == id && msg.ReceiverID == receiver && msg.Unread()
	}, at), nil
}

func (m *MockMessageRepository) ListInvolving(_ context.Context, uid string) ([]model.Message, error) {
	return m.filter(func(msg *model.Message) bool {
		return msg.SenderID == uid || msg.ReceiverID == uid
	}, true), nil
}

func (m *MockMessageRepository) Delete(_ context.Context, id uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[id]; !ok {
		return 0, nil
	}
	delete(m.messages, id)
	return 1, nil
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []model.Message
}

func (p *recordingPublisher) PublishMessage(_ context.Context, msg *model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, *msg)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// MockBookRepository is an in-memory BookRepository.
type MockBookRepository struct {
	books  map[uint64]*model.BookListing
	nextID uint64
}

func NewMockBookRepository() *MockBookRepository {
	return &MockBookRepository{books: make(map[uint64]*model.BookListing), nextID: 1}
}

func (m *MockBookRepository) Create(_ context.Context, b *model.BookListing) error {
	b.ID = m.nextID
	m.nextID++
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *MockBookRepository) Update(_ context.Context, b *model.BookListing) error {
	if _, ok := m.books[b.ID]; !ok {
		return errors.New("missing")
	}
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *MockBookRepository) FindByID(_ context.Context, id uint64) (*model.BookListing, error) {
	if b, ok := m.books[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockBookRepository) List(_ context.Context, limit, offset int) ([]model.BookListing, int64, error) {
	out := make([]model.BookListing, 0, len(m.books))
	for id := uint64(1); id < m.nextID; id++ {
		if b, ok := m.books[id]; ok {
			out = append(out, *b)
		}
	}
	total := int64(len(out))
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *MockBookRepository) Latest(ctx context.Context, limit int) ([]model.BookListing, error) {
	list, _, err := m.List(ctx, limit, 0)
	return list, err
}

func (m *MockBookRepository) CountAll(_ context.Context) (int64, error) {
	return int64(len(m.books)), nil
}
