package models

import (
	"time"
)

// AssistantReceiverID is the receiver recorded for messages addressed to the assistant.
const AssistantReceiverID = "assistant"

// Message is a stored conversational turn.
type Message struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SenderID   string    `gorm:"type:varchar(36);not null;index" json:"sender_id"`
	ReceiverID string    `gorm:"type:varchar(36);not null;index" json:"receiver_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// MessageRole labels a turn in the assistant thread.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// AssistantMessageMeta carries hints attached to synthesized replies.
type AssistantMessageMeta struct {
	SuggestedReply     bool `json:"suggested_reply,omitempty"`
	AppointmentRequest bool `json:"appointment_request,omitempty"`
	MarketResearch     bool `json:"market_research,omitempty"`
}

// AssistantMessage is a message as shown in an artist's assistant thread.
type AssistantMessage struct {
	ID        string                `json:"id"`
	Content   string                `json:"content"`
	Role      MessageRole           `json:"role"`
	Timestamp time.Time             `json:"timestamp"`
	Metadata  *AssistantMessageMeta `json:"metadata,omitempty"`
}

// AsAssistantMessage labels a stored message relative to the artist: anything
// the artist sent is "user", everything else is "assistant".
func (m *Message) AsAssistantMessage(artistID string) AssistantMessage {
	role := RoleAssistant
	if m.SenderID == artistID {
		role = RoleUser
	}
	return AssistantMessage{
		ID:        m.ID,
		Content:   m.Message,
		Role:      role,
		Timestamp: m.Timestamp,
	}
}
