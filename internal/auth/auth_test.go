package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeQueryAuth(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/bucket/key?AWSAccessKeyId=test:tester&Signature=sig&Expires=1234567890", nil)

	handled, err := SynthesizeQueryAuth(r)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "1234567890", r.Header.Get("Date"))
	assert.Equal(t, "AWS test:tester:sig", r.Header.Get("Authorization"))
}

func TestSynthesizeQueryAuthMissingSignature(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/bucket/key?AWSAccessKeyId=test:tester", nil)

	handled, err := SynthesizeQueryAuth(r)
	assert.True(t, handled)
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestSynthesizeQueryAuthNotPresigned(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/bucket/key", nil)

	handled, err := SynthesizeQueryAuth(r)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("AWS test:tester:c2ln")
	require.NoError(t, err)
	assert.Equal(t, "test:tester", id.Account)
	assert.Equal(t, "c2ln", id.Signature)
}

func TestParseIdentityFailures(t *testing.T) {
	_, err := ParseIdentity("Bearer token")
	assert.ErrorIs(t, err, ErrMalformedAuthorization)

	_, err = ParseIdentity("AWS a b c")
	assert.ErrorIs(t, err, ErrMalformedAuthorization)

	_, err = ParseIdentity("AWS nocolon")
	assert.ErrorIs(t, err, ErrMalformedIdentity)
}

func TestCheckDate(t *testing.T) {
	now := time.Date(2011, time.March, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, CheckDate("", now))
	assert.NoError(t, CheckDate(now.Format(time.RFC1123Z), now))
	assert.NoError(t, CheckDate(now.Add(-9*time.Minute).Format(time.RFC1123Z), now))

	err := CheckDate(now.Add(-11*time.Minute).Format(time.RFC1123Z), now)
	assert.ErrorIs(t, err, ErrSkewed)

	err = CheckDate(now.Add(11*time.Minute).Format(time.RFC1123Z), now)
	assert.ErrorIs(t, err, ErrSkewed)
}

func TestCheckDateRejectsGarbage(t *testing.T) {
	now := time.Now()
	assert.ErrorIs(t, CheckDate("not a date", now), ErrBadDate)
	// Presigned Expires values are epoch seconds, not RFC 2822.
	assert.ErrorIs(t, CheckDate("1234567890", now), ErrBadDate)
}

func TestCheckDateRejectsPreEpoch(t *testing.T) {
	now := time.Date(1969, time.December, 31, 23, 0, 0, 0, time.UTC)
	header := now.Format(time.RFC1123Z)
	assert.ErrorIs(t, CheckDate(header, now), ErrBadDate)
}
