// Package uploads issues time-limited upload URLs for lot images. The
// backend never handles image bytes: clients PUT directly to object
// storage and publish lots referencing the returned keys.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize is the largest object a client may upload.
const MaxFileSize = 10 * 1024 * 1024

// URLExpiry is how long an issued upload URL stays valid.
const URLExpiry = 5 * time.Minute

var (
	// ErrFileTooLarge rejects uploads over MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType rejects non-image MIME types.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Request describes one object a client wants to upload.
type Request struct {
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
	// SHA256 is the base64-encoded checksum of the object; storage
	// verifies it on upload.
	SHA256 string `json:"sha256"`
}

// PresignedUpload is an issued upload grant: the object key to reference
// from a lot, and the URL to PUT the bytes to.
type PresignedUpload struct {
	Key       string `json:"key"`
	URL       string `json:"uploadUrl"`
	ExpiresIn int    `json:"expiresInSeconds"`
}

// Signer issues presigned upload URLs for a caller.
type Signer interface {
	Presign(ctx context.Context, req Request, userID string) (*PresignedUpload, error)
}

// Validate applies the upload policy: images only, at most MaxFileSize.
func Validate(req Request) error {
	if req.FileSize > MaxFileSize {
		return fmt.Errorf("%d bytes: %w", req.FileSize, ErrFileTooLarge)
	}
	if req.MimeType == "" || !strings.HasPrefix(req.MimeType, "image/") {
		return fmt.Errorf("%q: %w", req.MimeType, ErrUnsupportedType)
	}
	return nil
}

// Key builds the object key for a new upload by userID.
func Key(userID string) string {
	return "uploads/" + userID + "/" + uuid.NewString()
}
