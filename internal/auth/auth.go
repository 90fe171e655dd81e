// Package auth handles the inbound S3 authentication surface: credential
// parsing, the clock-skew gate and the canonical string the backend token
// carries. The backend's own auth middleware is the trust root; nothing
// here verifies a signature.
package auth

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"
)

const (
	// Scheme is the Authorization keyword for AWS signature v2 requests.
	Scheme = "AWS"

	// MaxClockSkew is the tolerated distance between the request Date and
	// the gateway clock.
	MaxClockSkew = 10 * time.Minute
)

// Credential parsing and date-gate failures. The gateway maps each to its
// S3 error code.
var (
	ErrMissingSignature       = errors.New("presigned request without Signature")
	ErrMalformedAuthorization = errors.New("malformed Authorization header")
	ErrMalformedIdentity      = errors.New("malformed access key identity")
	ErrBadDate                = errors.New("unparseable or pre-epoch Date header")
	ErrSkewed                 = errors.New("request time too skewed")
)

// Identity is the caller identity carried by an AWS v2 Authorization
// header. Account keeps the embedded tenant:user form; only the rightmost
// colon separates the signature.
type Identity struct {
	Account   string
	Signature string
}

// SynthesizeQueryAuth rewrites query-string credentials into header form:
// the Expires parameter becomes the Date header and AWSAccessKeyId plus
// Signature become an Authorization header. It reports whether the request
// carried query credentials at all.
func SynthesizeQueryAuth(r *http.Request) (bool, error) {
	query := r.URL.Query()
	accessKey := query.Get("AWSAccessKeyId")
	if accessKey == "" {
		return false, nil
	}

	if !query.Has("Signature") {
		return true, ErrMissingSignature
	}

	r.Header.Set("Date", query.Get("Expires"))
	r.Header.Set("Authorization", Scheme+" "+accessKey+":"+query.Get("Signature"))
	return true, nil
}

// ParseIdentity splits an Authorization header into the caller identity.
func ParseIdentity(header string) (Identity, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != Scheme {
		return Identity{}, ErrMalformedAuthorization
	}

	idx := strings.LastIndex(parts[1], ":")
	if idx < 0 {
		return Identity{}, ErrMalformedIdentity
	}

	return Identity{
		Account:   parts[1][:idx],
		Signature: parts[1][idx+1:],
	}, nil
}

// CheckDate applies the clock-skew gate to an RFC 2822 Date header value.
// An absent header passes; the caller decides whether that is acceptable.
func CheckDate(dateHeader string, now time.Time) error {
	if dateHeader == "" {
		return nil
	}

	date, err := mail.ParseDate(dateHeader)
	if err != nil {
		return ErrBadDate
	}
	if date.Before(time.Unix(0, 0)) {
		return ErrBadDate
	}

	skew := now.Sub(date)
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxClockSkew {
		return ErrSkewed
	}
	return nil
}
