// Package objectstore uploads journal media to an S3-compatible bucket and
// removes it again when its record is deleted.
package objectstore

import (
	"context"
	"path"
	"strings"

	"github.com/dmitrijs2005/memojournal/internal/models"
)

// File is one media file ready for transport.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	Format      string // short form such as "jpg" or "png"
}

// UploadOptions places the object in the bucket.
type UploadOptions struct {
	Folder   string
	Tags     []string
	PublicID string // generated when empty
}

// ProgressFunc receives transport progress in percent, 0 to 100.
type ProgressFunc func(percent int)

// DeleteResult reports what Delete found.
type DeleteResult string

const (
	DeleteOK       DeleteResult = "ok"
	DeleteNotFound DeleteResult = "not found"
)

// Store is the remote object store boundary.
type Store interface {
	Upload(ctx context.Context, f File, opts UploadOptions, onProgress ProgressFunc) (models.Image, error)
	Delete(ctx context.Context, publicID string) (DeleteResult, error)
}

// ObjectKey joins folder and public id and adds the format extension.
func ObjectKey(folder, publicID, format string) string {
	key := path.Join(strings.Trim(folder, "/"), publicID)
	if format != "" && path.Ext(key) == "" {
		key += "." + format
	}
	return key
}
