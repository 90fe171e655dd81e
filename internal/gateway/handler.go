package gateway

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gridstore/swift-s3-gateway/internal/auth"
	"github.com/gridstore/swift-s3-gateway/internal/monitoring"
	"github.com/gridstore/swift-s3-gateway/internal/s3api"
)

// s3Request carries the per-request state the controllers need. Bucket and
// object hold the path segments in escaped form, the way the backend path
// is built; the object segment may contain slashes.
type s3Request struct {
	identity auth.Identity
	token    string
	bucket   string
	object   string
}

// handleRequest is the single entry point for inbound traffic. It applies
// presign synthesis, decides signed versus passthrough, runs the clock-skew
// gate, builds the backend auth token and dispatches to a controller.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.WithField("panic", rec).Error("Request handler panicked")
		}
	}()

	if handled, err := auth.SynthesizeQueryAuth(r); handled && err != nil {
		s.writeError(w, s3api.ErrInvalidArgument)
		return
	}

	if r.Header.Get("Authorization") == "" {
		monitoring.PassthroughTotal.Inc()
		s.passthrough.ServeHTTP(w, r)
		return
	}

	identity, err := auth.ParseIdentity(r.Header.Get("Authorization"))
	if err != nil {
		if errors.Is(err, auth.ErrMalformedIdentity) {
			s.writeError(w, s3api.ErrInvalidArgument)
		} else {
			s.writeError(w, s3api.ErrAccessDenied)
		}
		return
	}

	bucket, object, ok := splitObjectPath(r.URL.EscapedPath())
	if !ok {
		s.writeError(w, s3api.ErrInvalidURI)
		return
	}

	if err := auth.CheckDate(r.Header.Get("Date"), time.Now().UTC()); err != nil {
		if errors.Is(err, auth.ErrSkewed) {
			s.writeError(w, s3api.ErrRequestTimeTooSkewed)
		} else {
			s.writeError(w, s3api.ErrAccessDenied)
		}
		return
	}

	sr := &s3Request{
		identity: identity,
		token:    auth.Token(r),
		bucket:   bucket,
		object:   object,
	}

	switch {
	case sr.bucket == "":
		if r.Method == http.MethodGet {
			s.serviceGet(w, r, sr)
			return
		}
	case sr.object == "":
		switch r.Method {
		case http.MethodGet:
			s.bucketGet(w, r, sr)
			return
		case http.MethodPut:
			s.bucketPut(w, r, sr)
			return
		case http.MethodDelete:
			s.bucketDelete(w, r, sr)
			return
		case http.MethodPost:
			s.bucketPost(w, r, sr)
			return
		}
	default:
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			s.objectGetOrHead(w, r, sr)
			return
		case http.MethodPut:
			s.objectPut(w, r, sr)
			return
		case http.MethodDelete:
			s.objectDelete(w, r, sr)
			return
		}
	}

	s.writeError(w, s3api.ErrInvalidURI)
}

// splitObjectPath splits an escaped request path into bucket and object
// segments. The object keeps any embedded slashes. An empty bucket segment
// in front of more path ("//x") is malformed.
func splitObjectPath(path string) (bucket, object string, ok bool) {
	if !strings.HasPrefix(path, "/") {
		return "", "", false
	}
	rest := path[1:]
	if rest == "" {
		return "", "", true
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		bucket, object = rest[:i], rest[i+1:]
	} else {
		bucket = rest
	}
	if bucket == "" {
		return "", "", false
	}
	return bucket, object, true
}

// backendHeaders clones the inbound headers for the backend request and
// attaches the auth token. Content-Length travels on the request itself,
// not in the header map.
func backendHeaders(r *http.Request, token string) http.Header {
	h := make(http.Header, len(r.Header))
	for key, values := range r.Header {
		h[key] = append([]string(nil), values...)
	}
	h.Del("Authorization")
	h.Del("Content-Length")
	h.Set("X-Auth-Token", token)
	return h
}

// unescapeName percent-decodes a path segment for display in response
// documents, leaving it untouched when it is not valid percent-encoding.
func unescapeName(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
