package repository

import (
	"context"

	"sqlpanel/internal/model"
)

// PanelRepository defines the operations on published panel handles
type PanelRepository interface {
	// Create registers a new panel pointing at targetURL
	Create(ctx context.Context, targetURL string, spec model.PanelSpec) (*model.PanelHandle, error)

	// GetByID retrieves a panel by its short token
	GetByID(ctx context.Context, id string) (*model.Panel, error)

	// Resolve retrieves a panel and rejects expired handles
	Resolve(ctx context.Context, id string) (*model.Panel, error)

	// ListByOwner retrieves the panels of one owner, newest first
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.Panel, int64, error)
}
