package model

import (
	"time"

	"gorm.io/gorm"

	"sqlpanel/internal/utils"
)

// PanelIDLength is the length of the short alphanumeric panel token.
const PanelIDLength = 8

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Panel is a short-lived handle pointing at a published report.
type Panel struct {
	ID          string     `gorm:"type:varchar(16);primaryKey" json:"id"`
	TargetURL   string     `gorm:"size:1024;not null" json:"targetUrl"`
	OwnerID     string     `gorm:"size:128;not null;index" json:"ownerId"`
	Title       string     `gorm:"size:255" json:"title"`
	Description string     `gorm:"size:1024" json:"description"`
	Visibility  Visibility `gorm:"type:varchar(16);not null;default:'private'" json:"visibility"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `gorm:"index" json:"expiresAt,omitempty"`
}

func (Panel) TableName() string {
	return "panels"
}

// BeforeCreate assigns the short token when the caller left it empty.
func (p *Panel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		id, err := utils.GenerateToken(PanelIDLength)
		if err != nil {
			return err
		}
		p.ID = id
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPrivate
	}
	return nil
}

// Expired reports whether the handle is past its expiry at the given instant.
func (p *Panel) Expired(at time.Time) bool {
	return p.ExpiresAt != nil && !at.Before(*p.ExpiresAt)
}

// PanelSpec carries the caller-controlled attributes of a new panel.
type PanelSpec struct {
	OwnerID     string
	Title       string
	Description string
	Visibility  Visibility
}

// PanelHandle is what the registry hands back after creating a panel.
type PanelHandle struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
