// Package media stages image uploads for the admin console. An upload is
// written to a staging store and handed back as an image ID; the page flow
// later claims the ID when the user confirms, and a periodic sweep drops
// anything never claimed.
package media

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no staged image has the given ID.
	ErrNotFound = errors.New("media: image not found")

	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("media: image too large")

	// ErrUnsupportedType is returned for uploads outside the image allowlist.
	ErrUnsupportedType = errors.New("media: unsupported content type")
)

// Upload describes an incoming image before it is staged.
type Upload struct {
	Filename    string
	ContentType string

	// DeclaredSize is the client-declared size in bytes. Stores still
	// enforce their own limit on the actual bytes read.
	DeclaredSize int64
}

// Image is a staged upload handed back by Claim.
type Image struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64

	// URL points at the stored object for stores that can address one
	// directly (S3). Empty for disk staging.
	URL string

	// Content streams the image bytes. The caller owns the close; for
	// staging stores closing also releases the staged copy.
	Content io.ReadCloser
}

// Close releases the image content if it is open.
func (img *Image) Close() error {
	if img.Content != nil {
		return img.Content.Close()
	}
	return nil
}

// Store is a staging backend for uploaded images.
type Store interface {
	// Stage writes the upload and returns its image ID.
	Stage(ctx context.Context, up Upload, r io.Reader) (id string, err error)

	// Claim retrieves a staged image and consumes it: once claimed (and
	// the content closed), the staged copy is gone.
	Claim(ctx context.Context, id string) (*Image, error)

	// Sweep removes staged images older than maxAge and reports how many
	// were dropped.
	Sweep(ctx context.Context, maxAge time.Duration) (removed int, err error)
}
