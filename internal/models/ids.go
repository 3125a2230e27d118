package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewID returns a fresh row identifier.
func NewID() string {
	return uuid.NewString()
}

func ensureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}

// BeforeCreate hooks assign ids to rows created without one.

func (i *Identity) BeforeCreate(_ *gorm.DB) error        { ensureID(&i.ID); return nil }
func (p *Post) BeforeCreate(_ *gorm.DB) error            { ensureID(&p.ID); return nil }
func (p *PortfolioItem) BeforeCreate(_ *gorm.DB) error   { ensureID(&p.ID); return nil }
func (m *Message) BeforeCreate(_ *gorm.DB) error         { ensureID(&m.ID); return nil }
func (a *Appointment) BeforeCreate(_ *gorm.DB) error     { ensureID(&a.ID); return nil }
func (h *DailyHighlight) BeforeCreate(_ *gorm.DB) error  { ensureID(&h.ID); return nil }
func (r *AssistantReport) BeforeCreate(_ *gorm.DB) error { ensureID(&r.ID); return nil }
func (e *AssistantEvent) BeforeCreate(_ *gorm.DB) error  { ensureID(&e.ID); return nil }
