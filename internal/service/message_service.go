package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shinyyama/boilagbe-backend/internal/metrics"
	"github.com/shinyyama/boilagbe-backend/internal/model"
	"github.com/shinyyama/boilagbe-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxMessageRunes = 4000

// Publisher pushes a persisted message to the receiver's live connections.
// Delivery is best-effort; implementations log their own failures.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *model.Message)
}

type SendInput struct {
	SenderID   string
	ReceiverID string
	Text       string
	Via        string
}

// ConversationSummary is one row of a user's chat list.
type ConversationSummary struct {
	Counterpart string    `json:"counterpart"`
	UnreadCount int       `json:"unreadCount"`
	LastMessage string    `json:"lastMessage"`
	Timestamp   time.Time `json:"timestamp"`
}

type MessageService interface {
	Send(ctx context.Context, in SendInput) (*model.Message, error)
	History(ctx context.Context, uidA, uidB string) ([]model.Message, error)
	Latest(ctx context.Context, uidA, uidB string) (*model.Message, error)
	Unread(ctx context.Context, senderID, receiverID string) ([]model.Message, error)
	UnreadCount(ctx context.Context, senderID, receiverID string) (int64, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	MarkMessageRead(ctx context.Context, id uint64, readerID string) error
	Delete(ctx context.Context, id uint64, actorID string) error
	Summaries(ctx context.Context, uid string) ([]ConversationSummary, error)
}

type messageService struct {
	repo   repository.MessageRepository
	pub    Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewMessageService(repo repository.MessageRepository, pub Publisher, logger *zap.Logger) MessageService {
	return &messageService{
		repo:   repo,
		pub:    pub,
		logger: logger.Named("messages"),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func requirePair(senderID, receiverID string) error {
	if strings.TrimSpace(senderID) == "" {
		return invalid("sender", "is required")
	}
	if strings.TrimSpace(receiverID) == "" {
		return invalid("receiver", "is required")
	}
	return nil
}

func (s *messageService) Send(ctx context.Context, in SendInput) (*model.Message, error) {
	if err := requirePair(in.SenderID, in.ReceiverID); err != nil {
		s.logger.Warn("send rejected", zap.String("via", in.Via), zap.Error(err))
		return nil, err
	}
	if in.SenderID == in.ReceiverID {
		err := invalid("receiver", "must differ from sender")
		s.logger.Warn("send rejected", zap.String("via", in.Via), zap.Error(err))
		return nil, err
	}
	if strings.TrimSpace(in.Text) == "" {
		err := invalid("text", "is required")
		s.logger.Warn("send rejected", zap.String("via", in.Via), zap.Error(err))
		return nil, err
	}
	if utf8.RuneCountInString(in.Text) > maxMessageRunes {
		err := invalid("text", fmt.Sprintf("exceeds %d characters", maxMessageRunes))
		s.logger.Warn("send rejected", zap.String("via", in.Via), zap.Error(err))
		return nil, err
	}

	msg := &model.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Text:       in.Text,
		Timestamp:  s.now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		s.logger.Error("persist message failed; push skipped",
			zap.String("sender", in.SenderID),
			zap.String("receiver", in.ReceiverID),
			zap.Error(err))
		return nil, fmt.Errorf("persist message: %w", err)
	}
	via := in.Via
	if via == "" {
		via = "rest"
	}
	metrics.MessagesSent.WithLabelValues(via).Inc()

	if s.pub != nil {
		s.pub.PublishMessage(ctx, msg)
	}
	return msg, nil
}

func (s *messageService) History(ctx context.Context, uidA, uidB string) ([]model.Message, error) {
	if err := requirePair(uidA, uidB); err != nil {
		return nil, err
	}
	return s.repo.ListConversation(ctx, uidA, uidB)
}

func (s *messageService) Latest(ctx context.Context, uidA, uidB string) (*model.Message, error) {
	if err := requirePair(uidA, uidB); err != nil {
		return nil, err
	}
	return s.repo.Latest(ctx, uidA, uidB)
}

func (s *messageService) Unread(ctx context.Context, senderID, receiverID string) ([]model.Message, error) {
	if err := requirePair(senderID, receiverID); err != nil {
		return nil, err
	}
	return s.repo.ListUnread(ctx, senderID, receiverID)
}

func (s *messageService) UnreadCount(ctx context.Context, senderID, receiverID string) (int64, error) {
	if err := requirePair(senderID, receiverID); err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, senderID, receiverID)
}

func (s *messageService) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	if err := requirePair(senderID, receiverID); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkRead(ctx, senderID, receiverID, s.now())
	if err != nil {
		return 0, err
	}
	metrics.MessagesMarkedRead.Add(float64(n))
	return n, nil
}

// MarkMessageRead stamps a single message read on behalf of its receiver.
// Messages addressed to someone else, or already read, are left alone.
func (s *messageService) MarkMessageRead(ctx context.Context, id uint64, readerID string) error {
	if id == 0 {
		return invalid("messageId", "is required")
	}
	if strings.TrimSpace(readerID) == "" {
		return invalid("reader", "is required")
	}
	n, err := s.repo.MarkMessageRead(ctx, id, readerID, s.now())
	if err != nil {
		return err
	}
	metrics.MessagesMarkedRead.Add(float64(n))
	return nil
}

// Delete hard-deletes a message. A non-empty actorID must be the sender.
func (s *messageService) Delete(ctx context.Context, id uint64, actorID string) error {
	if actorID != "" {
		msg, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if msg.SenderID != actorID {
			return ErrForbidden
		}
	}
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Summaries builds uid's chat list, newest conversation first.
func (s *messageService) Summaries(ctx context.Context, uid string) ([]ConversationSummary, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, invalid("user", "is required")
	}
	msgs, err := s.repo.ListInvolving(ctx, uid)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	out := make([]ConversationSummary, 0)
	for i := range msgs {
		m := &msgs[i]
		peer := m.Counterpart(uid)
		pos, ok := index[peer]
		if !ok {
			pos = len(out)
			index[peer] = pos
			out = append(out, ConversationSummary{
				Counterpart: peer,
				LastMessage: m.Text,
				Timestamp:   m.Timestamp,
			})
		}
		if m.ReceiverID == uid && m.Unread() {
			out[pos].UnreadCount++
		}
	}
	return out, nil
}
