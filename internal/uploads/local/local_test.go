package local

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlfilAlex/taller-upy/internal/uploads"
)

func TestPresignAndVerify(t *testing.T) {
	signer := New("http://localhost:8080/files", "secret")

	grant, err := signer.Presign(context.Background(), uploads.Request{
		MimeType: "image/jpeg",
		FileSize: 1024,
	}, "U1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(grant.URL, "http://localhost:8080/files/uploads/U1/"), grant.URL)

	u, err := url.Parse(grant.URL)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)

	assert.True(t, signer.Verify(grant.Key, expires, u.Query().Get("sig")))
	assert.False(t, signer.Verify(grant.Key, expires, "forged"))
	assert.False(t, signer.Verify("uploads/U1/other", expires, u.Query().Get("sig")))
}

func TestVerifyExpired(t *testing.T) {
	signer := New("http://localhost:8080/files", "secret")
	signer.now = func() time.Time { return time.Unix(1000, 0) }

	grant, err := signer.Presign(context.Background(), uploads.Request{
		MimeType: "image/png",
		FileSize: 10,
	}, "U1")
	require.NoError(t, err)

	u, err := url.Parse(grant.URL)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	sig := u.Query().Get("sig")

	assert.True(t, signer.Verify(grant.Key, expires, sig))

	signer.now = func() time.Time { return time.Unix(1000+int64(uploads.URLExpiry.Seconds())+1, 0) }
	assert.False(t, signer.Verify(grant.Key, expires, sig))
}

func TestPresignPolicy(t *testing.T) {
	signer := New("http://localhost:8080/files", "secret")

	_, err := signer.Presign(context.Background(), uploads.Request{
		MimeType: "text/plain",
		FileSize: 10,
	}, "U1")
	assert.ErrorIs(t, err, uploads.ErrUnsupportedType)
}
