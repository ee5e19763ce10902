package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"sqlpanel/internal/model"
	"sqlpanel/internal/utils"
)

// PanelOptions controls how handles are minted.
type PanelOptions struct {
	PublicBaseURL string
	TTL           time.Duration // zero disables expiry
	Now           func() time.Time
}

type panelRepository struct {
	db      *gorm.DB
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewPanelRepository creates a new instance of PanelRepository
func NewPanelRepository(db *gorm.DB, opts PanelOptions) PanelRepository {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &panelRepository{
		db:      db,
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		ttl:     opts.TTL,
		now:     now,
	}
}

// Create inserts a panel; the token is generated by the model hook.
func (r *panelRepository) Create(ctx context.Context, targetURL string, spec model.PanelSpec) (*model.PanelHandle, error) {
	if targetURL == "" {
		return nil, ErrEmptyTarget
	}

	panel := &model.Panel{
		TargetURL:   targetURL,
		OwnerID:     spec.OwnerID,
		Title:       spec.Title,
		Description: spec.Description,
		Visibility:  spec.Visibility,
		CreatedAt:   r.now(),
	}
	if r.ttl > 0 {
		expires := panel.CreatedAt.Add(r.ttl)
		panel.ExpiresAt = &expires
	}

	if err := r.db.WithContext(ctx).Create(panel).Error; err != nil {
		return nil, err
	}

	return &model.PanelHandle{ID: panel.ID, URL: r.URLFor(panel.ID)}, nil
}

// URLFor returns the public short URL of a panel id.
func (r *panelRepository) URLFor(id string) string {
	return r.baseURL + "/p/" + id
}

// GetByID retrieves a panel by its short token
func (r *panelRepository) GetByID(ctx context.Context, id string) (*model.Panel, error) {
	if len(id) != model.PanelIDLength || !utils.IsAlphanumeric(id) {
		return nil, ErrInvalidPanelID
	}

	var panel model.Panel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&panel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPanelNotFound
		}
		return nil, result.Error
	}
	return &panel, nil
}

// Resolve is GetByID plus the expiry check used by the redirect endpoint.
func (r *panelRepository) Resolve(ctx context.Context, id string) (*model.Panel, error) {
	panel, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if panel.Expired(r.now()) {
		return nil, ErrPanelExpired
	}
	return panel, nil
}

// ListByOwner retrieves the panels of one owner with pagination
func (r *panelRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.Panel, int64, error) {
	var panels []*model.Panel
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Panel{}).Where("owner_id = ?", ownerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := query.Limit(limit).Offset(offset).Order("created_at DESC").Find(&panels)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return panels, total, nil
}
