package models

import (
	"time"
)

// ReportStatus represents the lifecycle of a market-research report.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

// ReportSource is a citation attached to a completed report.
type ReportSource struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// AssistantReport is a market-research request and, once completed, its result.
type AssistantReport struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ArtistID    string         `gorm:"type:varchar(36);not null;index" json:"artist_id"`
	Query       string         `gorm:"type:text;not null" json:"query"`
	Region      *string        `json:"region"`
	TimeStart   *string        `json:"time_start"`
	TimeEnd     *string        `json:"time_end"`
	Methodology *string        `gorm:"type:text" json:"methodology"`
	Summary     *string        `gorm:"type:text" json:"summary"`
	Sources     []ReportSource `gorm:"serializer:json" json:"sources"`
	Confidence  *string        `json:"confidence"`
	Status      ReportStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AssistantReport) TableName() string {
	return "assistant_reports"
}

// ReportFindings is the result written onto a report when it completes.
type ReportFindings struct {
	Summary     string
	Methodology string
	Sources     []ReportSource
	Confidence  string
}

// AssistantSettings is the single per-artist preference row.
type AssistantSettings struct {
	ArtistID    string         `gorm:"primaryKey;type:varchar(36)" json:"artist_id"`
	Enabled     bool           `gorm:"not null" json:"enabled"`
	Preferences map[string]any `gorm:"serializer:json" json:"preferences"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (AssistantSettings) TableName() string {
	return "assistant_settings"
}

// DefaultAssistantSettings is what an artist sees before saving any settings.
func DefaultAssistantSettings(artistID string) AssistantSettings {
	return AssistantSettings{
		ArtistID:    artistID,
		Enabled:     true,
		Preferences: map[string]any{},
	}
}

// AssistantEventType names an action taken on an artist's behalf.
type AssistantEventType string

const (
	EventMessageSent       AssistantEventType = "message_sent"
	EventReplyGenerated    AssistantEventType = "reply_generated"
	EventResearchRequested AssistantEventType = "research_requested"
	EventResearchCompleted AssistantEventType = "research_completed"
	EventResearchFailed    AssistantEventType = "research_failed"
)

// AssistantEvent is an audit record of assistant activity.
type AssistantEvent struct {
	ID        string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ArtistID  string             `gorm:"type:varchar(36);not null;index" json:"artist_id"`
	Type      AssistantEventType `gorm:"type:varchar(40);not null" json:"type"`
	Payload   map[string]any     `gorm:"serializer:json" json:"payload"`
	Status    string             `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// TableName specifies the table name for GORM
func (AssistantEvent) TableName() string {
	return "assistant_events"
}
