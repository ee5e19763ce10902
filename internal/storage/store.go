// Package storage uploads rendered reports to an object store and returns
// the public URL they can be fetched from.
package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPrefix      = "reports"
	HTMLContentType    = "text/html; charset=utf-8"
	maxSanitizedLength = 64
)

// UploadResult describes a stored object.
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	ETag string `json:"etag,omitempty"`
}

// Store is implemented by every object store backend.
type Store interface {
	UploadDocument(ctx context.Context, data []byte, name string) (*UploadResult, error)
	Provider() string
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces a suggested file name to a safe object key segment.
func SanitizeName(name string) string {
	name = strings.TrimSuffix(path.Base(strings.ReplaceAll(name, "\\", "/")), ".html")
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if len(name) > maxSanitizedLength {
		name = name[:maxSanitizedLength]
	}
	if name == "" {
		name = "report"
	}
	return name
}

// ObjectName builds prefix/yyyy/mm/dd/<uuid>-<name>.html.
func ObjectName(prefix, name string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s/%s/%s-%s.html",
		strings.Trim(prefix, "/"),
		now.UTC().Format("2006/01/02"),
		uuid.New().String(),
		SanitizeName(name),
	)
}

// PublicURL joins a base URL and key segments with single slashes.
func PublicURL(base string, segments ...string) string {
	parts := []string{strings.TrimRight(base, "/")}
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
