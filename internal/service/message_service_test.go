package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMessageService(t *testing.T) (*messageService, *MockMessageRepository, *recordingPublisher, *fakeClock) {
	t.Helper()
	repo := NewMockMessageRepository()
	pub := &recordingPublisher{}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewMessageService(repo, pub, zap.NewNop()).(*messageService)
	svc.now = clock.now
	return svc, repo, pub, clock
}

func TestSendPersistsThenPublishes(t *testing.T) {
	svc, repo, pub, clock := newTestMessageService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "is this still available?"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("expected generated id")
	}
	if !msg.Timestamp.Equal(clock.t) {
		t.Errorf("timestamp=%v want server time %v", msg.Timestamp, clock.t)
	}
	if msg.LastReadAt != nil {
		t.Error("new message must be unread")
	}
	if _, err := repo.FindByID(ctx, msg.ID); err != nil {
		t.Fatalf("not persisted: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("published %d events, want 1", pub.count())
	}
	got := pub.sent[0]
	if got.Text != msg.Text || got.SenderID != "buyer" || got.ReceiverID != "admin" || got.ID != msg.ID {
		t.Fatalf("published %+v", got)
	}
}

func TestSendValidation(t *testing.T) {
	svc, _, pub, _ := newTestMessageService(t)
	long := make([]rune, maxMessageRunes+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name  string
		in    SendInput
		field string
	}{
		{"missing sender", SendInput{ReceiverID: "admin", Text: "hi"}, "sender"},
		{"missing receiver", SendInput{SenderID: "buyer", Text: "hi"}, "receiver"},
		{"blank text", SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "   "}, "text"},
		{"self chat", SendInput{SenderID: "buyer", ReceiverID: "buyer", Text: "hi"}, "receiver"},
		{"too long", SendInput{SenderID: "buyer", ReceiverID: "admin", Text: string(long)}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err=%v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("field=%q want %q", ve.Field, tt.field)
			}
		})
	}
	if pub.count() != 0 {
		t.Fatalf("rejected sends must not publish")
	}
}

func TestSendPersistenceFailureSkipsPush(t *testing.T) {
	svc, repo, pub, _ := newTestMessageService(t)
	repo.createErr = errors.New("connection refused")

	_, err := svc.Send(context.Background(), SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, repo.createErr) {
		t.Fatalf("err=%v should wrap the store error", err)
	}
	if pub.count() != 0 {
		t.Fatal("push must be skipped when persistence fails")
	}
}

func TestUnreadCountLifecycle(t *testing.T) {
	svc, _, _, clock := newTestMessageService(t)
	ctx := context.Background()

	n, err := svc.UnreadCount(ctx, "buyer", "admin")
	if err != nil || n != 0 {
		t.Fatalf("empty count=%d err=%v", n, err)
	}

	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: text}); err != nil {
			t.Fatalf("send: %v", err)
		}
		clock.advance(time.Millisecond)
	}
	if n, _ = svc.UnreadCount(ctx, "buyer", "admin"); n != 3 {
		t.Fatalf("count=%d want 3", n)
	}

	marked, err := svc.MarkRead(ctx, "buyer", "admin")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if marked != 3 {
		t.Fatalf("marked=%d want 3", marked)
	}
	if n, _ = svc.UnreadCount(ctx, "buyer", "admin"); n != 0 {
		t.Fatalf("count after mark=%d", n)
	}

	clock.advance(time.Second)
	if n, _ = svc.UnreadCount(ctx, "buyer", "admin"); n != 0 {
		t.Fatalf("count must stay 0 on re-query, got %d", n)
	}
	if marked, _ = svc.MarkRead(ctx, "buyer", "admin"); marked != 0 {
		t.Fatalf("second mark-read touched %d messages", marked)
	}

	if _, err := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "four"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	unread, err := svc.Unread(ctx, "buyer", "admin")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(unread) != 1 || unread[0].Text != "four" {
		t.Fatalf("unread=%+v", unread)
	}
}

func TestSameMillisecondIsCovered(t *testing.T) {
	svc, _, _, _ := newTestMessageService(t)
	ctx := context.Background()

	// Clock does not move: message timestamp equals the mark-read stamp.
	if _, err := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "tie"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.MarkRead(ctx, "buyer", "admin"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, "buyer", "admin"); n != 0 {
		t.Fatalf("tie should be covered, count=%d", n)
	}
}

func TestMarkMessageRead(t *testing.T) {
	svc, repo, _, clock := newTestMessageService(t)
	ctx := context.Background()

	a, _ := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "a"})
	clock.advance(time.Millisecond)
	b, _ := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "b"})
	clock.advance(time.Millisecond)

	if err := svc.MarkMessageRead(ctx, a.ID, "buyer"); err != nil {
		t.Fatalf("mark by sender: %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, "buyer", "admin"); n != 2 {
		t.Fatalf("sender cannot mark, count=%d", n)
	}

	if err := svc.MarkMessageRead(ctx, a.ID, "admin"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, "buyer", "admin"); n != 1 {
		t.Fatalf("partially read conversation count=%d want 1", n)
	}
	got, _ := repo.FindByID(ctx, b.ID)
	if got.LastReadAt != nil {
		t.Fatal("other message must stay unread")
	}

	if err := svc.MarkMessageRead(ctx, 0, "admin"); !IsValidation(err) {
		t.Fatalf("err=%v want validation", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _, _, clock := newTestMessageService(t)
	ctx := context.Background()

	first, _ := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "first"})
	clock.advance(time.Millisecond)
	second, _ := svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "second"})

	if err := svc.Delete(ctx, first.ID, "admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("receiver delete err=%v want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, first.ID, "buyer"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, first.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err=%v want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, 999, "buyer"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id err=%v want ErrNotFound", err)
	}

	history, _ := svc.History(ctx, "admin", "buyer")
	if len(history) != 1 || history[0].ID != second.ID {
		t.Fatalf("history=%+v", history)
	}
	if n, _ := svc.UnreadCount(ctx, "buyer", "admin"); n != 1 {
		t.Fatalf("delete must not affect other messages, count=%d", n)
	}
}

func TestLatest(t *testing.T) {
	svc, _, _, clock := newTestMessageService(t)
	ctx := context.Background()

	latest, err := svc.Latest(ctx, "buyer", "admin")
	if err != nil || latest != nil {
		t.Fatalf("latest=%v err=%v", latest, err)
	}
	svc.Send(ctx, SendInput{SenderID: "buyer", ReceiverID: "admin", Text: "q"})
	clock.advance(time.Millisecond)
	svc.Send(ctx, SendInput{SenderID: "admin", ReceiverID: "buyer", Text: "a"})

	latest, err = svc.Latest(ctx, "buyer", "admin")
	if err != nil || latest == nil || latest.Text != "a" {
		t.Fatalf("latest=%+v err=%v", latest, err)
	}
}

func TestSummaries(t *testing.T) {
	svc, _, _, clock := newTestMessageService(t)
	ctx := context.Background()

	send := func(from, to, text string) {
		t.Helper()
		if _, err := svc.Send(ctx, SendInput{SenderID: from, ReceiverID: to, Text: text}); err != nil {
			t.Fatalf("send: %v", err)
		}
		clock.advance(time.Millisecond)
	}
	send("alice", "admin", "hello")
	send("alice", "admin", "anyone?")
	send("bob", "admin", "price?")
	send("admin", "bob", "700 BDT")
	if _, err := svc.MarkRead(ctx, "bob", "admin"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	list, err := svc.Summaries(ctx, "admin")
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d want 2", len(list))
	}
	if list[0].Counterpart != "bob" || list[0].UnreadCount != 0 || list[0].LastMessage != "700 BDT" {
		t.Errorf("bob summary=%+v", list[0])
	}
	if list[1].Counterpart != "alice" || list[1].UnreadCount != 2 || list[1].LastMessage != "anyone?" {
		t.Errorf("alice summary=%+v", list[1])
	}

	if _, err := svc.Summaries(ctx, ""); !IsValidation(err) {
		t.Fatalf("err=%v want validation", err)
	}
}
