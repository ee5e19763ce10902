// Package publisher uploads rendered reports and registers the short panel
// handle that points at them.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"sqlpanel/internal/logging"
	"sqlpanel/internal/model"
	"sqlpanel/internal/render"
	"sqlpanel/internal/storage"
)

// ContentStore stores a document and returns where it can be fetched.
type ContentStore interface {
	UploadDocument(ctx context.Context, data []byte, name string) (*storage.UploadResult, error)
}

// PanelRegistry mints panel handles.
type PanelRegistry interface {
	Create(ctx context.Context, targetURL string, spec model.PanelSpec) (*model.PanelHandle, error)
}

var ErrDependencyUnavailable = errors.New("publisher dependency is not initialized")

// UploadError wraps a content store failure.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "failed to upload report: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// RegistrationError wraps a panel registry failure. The uploaded object is
// left where it is.
type RegistrationError struct {
	ObjectURL string
	Err       error
}

func (e *RegistrationError) Error() string {
	return "failed to register panel: " + e.Err.Error()
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

type PublishRequest struct {
	Document  []byte
	FileName  string
	OwnerID   string
	OwnerName string
	Title     string
	ChartType model.ChartType
}

type PublishResult struct {
	URL      string `json:"url"`
	HandleID string `json:"handleId"`
}

type Publisher struct {
	store    ContentStore
	registry PanelRegistry
	logger   zerolog.Logger
}

// NewPublisher accepts nil collaborators; Publish then fails fast.
func NewPublisher(store ContentStore, registry PanelRegistry) *Publisher {
	return &Publisher{
		store:    store,
		registry: registry,
		logger:   logging.Component("publisher"),
	}
}

// Publish uploads the document and registers a private panel for it. There
// are no retries.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if p == nil || p.store == nil {
		return nil, fmt.Errorf("%w: content store", ErrDependencyUnavailable)
	}
	if p.registry == nil {
		return nil, fmt.Errorf("%w: panel registry", ErrDependencyUnavailable)
	}

	uploaded, err := p.store.UploadDocument(ctx, req.Document, req.FileName)
	if err != nil {
		return nil, &UploadError{Err: err}
	}

	handle, err := p.registry.Create(ctx, uploaded.URL, model.PanelSpec{
		OwnerID:     req.OwnerID,
		Title:       titleFor(req),
		Description: Describe(req.ChartType, req.OwnerName),
		Visibility:  model.VisibilityPrivate,
	})
	if err != nil {
		p.logger.Warn().Str("object_url", uploaded.URL).Err(err).Msg("panel registration failed after upload")
		return nil, &RegistrationError{ObjectURL: uploaded.URL, Err: err}
	}

	p.logger.Info().
		Str("panel_id", handle.ID).
		Str("owner_id", req.OwnerID).
		Str("object_key", uploaded.Key).
		Msg("report published")

	return &PublishResult{URL: handle.URL, HandleID: handle.ID}, nil
}

// Describe builds the panel description.
func Describe(ct model.ChartType, ownerName string) string {
	if ownerName == "" {
		ownerName = "anonymous"
	}
	return fmt.Sprintf("%s (%s) generated for %s", render.LocalizedChartName(ct), ct, ownerName)
}

func titleFor(req PublishRequest) string {
	if req.Title != "" {
		return req.Title
	}
	if req.FileName != "" {
		return req.FileName
	}
	return render.LocalizedChartName(req.ChartType)
}
