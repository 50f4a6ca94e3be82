package assets

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("0123456789abcdef0123456789abcdef", 168*time.Hour)
	id := uuid.New()

	signed := s.SignedURL(id)
	require.True(t, strings.HasPrefix(signed, "/assets/"+id.String()+"?"))

	u, err := url.Parse(signed)
	require.NoError(t, err)
	q := u.Query()
	assert.NoError(t, s.Verify(id, q.Get("exp"), q.Get("sig")))
}

func TestSigner_TamperedSignature(t *testing.T) {
	s := NewSigner("0123456789abcdef0123456789abcdef", time.Hour)
	id := uuid.New()

	u, _ := url.Parse(s.SignedURL(id))
	q := u.Query()

	assert.ErrorIs(t, s.Verify(id, q.Get("exp"), q.Get("sig")+"00"), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(uuid.New(), q.Get("exp"), q.Get("sig")), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(id, "notanumber", q.Get("sig")), ErrBadSignature)
}

func TestSigner_Expired(t *testing.T) {
	s := NewSigner("0123456789abcdef0123456789abcdef", time.Hour)
	id := uuid.New()

	u, _ := url.Parse(s.SignedURL(id))
	q := u.Query()

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, s.Verify(id, q.Get("exp"), q.Get("sig")), ErrExpired)
}

// Changing the expiry without re-signing must invalidate the URL.
func TestSigner_ExpiryIsCovered(t *testing.T) {
	s := NewSigner("0123456789abcdef0123456789abcdef", time.Hour)
	id := uuid.New()

	u, _ := url.Parse(s.SignedURL(id))
	q := u.Query()

	assert.ErrorIs(t, s.Verify(id, "9999999999", q.Get("sig")), ErrBadSignature)
}
