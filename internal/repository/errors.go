package repository

import "errors"

// Common repository errors
var (
	ErrPanelNotFound  = errors.New("panel not found")
	ErrPanelExpired   = errors.New("panel has expired")
	ErrInvalidPanelID = errors.New("invalid panel id")
	ErrEmptyTarget    = errors.New("panel target URL is required")
)
