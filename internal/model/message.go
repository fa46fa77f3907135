package model

import "time"

// Message is a direct chat message between two user identities.
// Only LastReadAt changes after creation.
type Message struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   string     `gorm:"column:sender_id;size:128;not null;index:idx_sender_receiver_ts,priority:1" json:"sender"`
	ReceiverID string     `gorm:"column:receiver_id;size:128;not null;index:idx_sender_receiver_ts,priority:2;index:idx_messages_receiver" json:"receiver"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	Timestamp  time.Time  `gorm:"column:sent_at;precision:3;not null;index:idx_sender_receiver_ts,priority:3" json:"timestamp"`
	LastReadAt *time.Time `gorm:"column:last_read_at;precision:3" json:"lastReadTimestamp,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// Unread reports whether the message has not been covered by a mark-read stamp.
// A stamp equal to the timestamp counts as covered.
func (m *Message) Unread() bool {
	return m.LastReadAt == nil || m.Timestamp.After(*m.LastReadAt)
}

// Counterpart returns the other identity of the message relative to uid.
func (m *Message) Counterpart(uid string) string {
	if m.SenderID == uid {
		return m.ReceiverID
	}
	return m.SenderID
}
