// Package local is a development stand-in for the S3 upload signer. It
// hands out HMAC-signed URLs pointing at a local file server instead of
// object storage.
package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/AlfilAlex/taller-upy/internal/uploads"
)

// Signer issues upload URLs of the form
// <base>/<key>?expires=<unix>&sig=<hmac>.
type Signer struct {
	baseURL string
	secret  []byte
	now     func() time.Time
}

func New(baseURL, secret string) *Signer {
	return &Signer{baseURL: baseURL, secret: []byte(secret), now: time.Now}
}

func (s *Signer) Presign(_ context.Context, req uploads.Request, userID string) (*uploads.PresignedUpload, error) {
	if err := uploads.Validate(req); err != nil {
		return nil, err
	}

	key := uploads.Key(userID)
	expires := s.now().Add(uploads.URLExpiry).Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(key, expires))

	return &uploads.PresignedUpload{
		Key:       key,
		URL:       fmt.Sprintf("%s/%s?%s", s.baseURL, key, q.Encode()),
		ExpiresIn: int(uploads.URLExpiry.Seconds()),
	}, nil
}

// Verify reports whether sig authorizes an upload to key until expires.
func (s *Signer) Verify(key string, expires int64, sig string) bool {
	if expires < s.now().Unix() {
		return false
	}
	expected := s.sign(key, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
