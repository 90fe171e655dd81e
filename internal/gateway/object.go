package gateway

import (
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gridstore/swift-s3-gateway/internal/acl"
	"github.com/gridstore/swift-s3-gateway/internal/backend"
	"github.com/gridstore/swift-s3-gateway/internal/s3api"
)

// Backend response headers passed through to the S3 client unchanged.
var passthroughObjectHeaders = map[string]bool{
	"content-length":   true,
	"content-type":     true,
	"content-range":    true,
	"content-encoding": true,
	"etag":             true,
	"last-modified":    true,
}

// objectGetOrHead handles GET and HEAD Object, including the acl view and
// versionId selection. HEAD is promoted to a backend GET with the body
// discarded.
func (s *Server) objectGetOrHead(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	head := r.Method == http.MethodHead
	query := r.URL.Query()

	method := http.MethodGet
	var params []string
	aclRequested := query.Has("acl")
	if aclRequested {
		params = append(params, "acl")
		method = http.MethodHead
	}
	if query.Has("versionId") {
		params = append(params, "versionId="+query.Get("versionId"))
	}

	resp, err := s.backend.Do(r.Context(), &backend.Request{
		Method:    method,
		Account:   sr.identity.Account,
		Container: sr.bucket,
		Object:    sr.object,
		RawQuery:  strings.Join(params, "&"),
		Header:    backendHeaders(r, sr.token),
	})
	if err != nil {
		s.backendFailure(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if aclRequested {
			s.xml.WriteBareXML(w, acl.DocumentFromHeaders(acl.ResourceObject, resp.Header))
			return
		}

		for key, values := range resp.Header {
			lower := strings.ToLower(key)
			switch {
			case strings.HasPrefix(lower, "x-object-meta-"):
				w.Header()[http.CanonicalHeaderKey("x-amz-meta-"+key[len("x-object-meta-"):])] = values
			case passthroughObjectHeaders[lower]:
				w.Header()[http.CanonicalHeaderKey(key)] = values
			}
		}
		w.WriteHeader(resp.StatusCode)
		if !head {
			if _, err := io.Copy(w, resp.Body); err != nil {
				s.logger.WithError(err).Debug("Failed to stream object body")
			}
		}
		return
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		s.writeError(w, s3api.ErrAccessDenied)
	case http.StatusNotFound:
		s.writeError(w, s3api.ErrNoSuchKey)
	default:
		s.writeError(w, s3api.ErrInvalidURI)
	}
}

// objectPut handles PUT Object, PUT Object (Copy) and the acl subresource
// write.
func (s *Server) objectPut(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	query := r.URL.Query()
	headers := backendHeaders(r, sr.token)

	breq := &backend.Request{
		Method:    http.MethodPut,
		Account:   sr.identity.Account,
		Container: sr.bucket,
		Object:    sr.object,
		Header:    headers,
	}

	aclRequested := query.Has("acl")
	if aclRequested {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, s3api.ErrMalformedACL)
			return
		}
		policy, err := acl.ParsePolicy(payload)
		if err != nil {
			s.writeError(w, s3api.ErrMalformedACL)
			return
		}
		for key, value := range acl.HeadersFromPolicy(policy, acl.ResourceObject, s.config.AuthSentinel) {
			headers.Set(key, value)
		}
		breq.Method = http.MethodPost
		breq.RawQuery = "acl"
	} else {
		for key := range r.Header {
			lower := strings.ToLower(key)
			switch {
			case strings.HasPrefix(lower, "x-amz-meta-"):
				headers.Del(key)
				headers[http.CanonicalHeaderKey("x-object-meta-"+key[len("x-amz-meta-"):])] = r.Header[key]
			case lower == "content-md5":
				value := r.Header.Get("Content-MD5")
				if value == "" {
					s.writeError(w, s3api.ErrInvalidDigest)
					return
				}
				decoded, err := base64.StdEncoding.DecodeString(value)
				if err != nil {
					s.writeError(w, s3api.ErrInvalidDigest)
					return
				}
				etag := hex.EncodeToString(decoded)
				if etag == "" {
					s.writeError(w, s3api.ErrSignatureDoesNotMatch)
					return
				}
				headers.Set("Etag", etag)
			case lower == "x-amz-copy-source":
				headers.Set("X-Copy-From", r.Header.Get("X-Amz-Copy-Source"))
			}
		}
		breq.Body = r.Body
		breq.ContentLength = r.ContentLength
	}

	resp, err := s.backend.Do(r.Context(), breq)
	if err != nil {
		s.backendFailure(w, err)
		return
	}
	defer resp.Body.Close()

	expected := http.StatusCreated
	if aclRequested {
		expected = http.StatusAccepted
	}

	if resp.StatusCode != expected {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			s.writeError(w, s3api.ErrAccessDenied)
		case http.StatusNotFound:
			s.writeError(w, s3api.ErrNoSuchBucket)
		case http.StatusUnprocessableEntity:
			s.writeError(w, s3api.ErrInvalidDigest)
		default:
			s.writeError(w, s3api.ErrInvalidURI)
		}
		return
	}

	if !aclRequested && headers.Get("X-Copy-From") != "" {
		s.xml.WriteBareXML(w, s3api.CopyObjectResult{
			ETag: `"` + resp.Header.Get("Etag") + `"`,
		})
		return
	}

	if !aclRequested {
		w.Header().Set("ETag", resp.Header.Get("Etag"))
	}
	w.WriteHeader(http.StatusOK)
}

// objectDelete handles DELETE Object.
func (s *Server) objectDelete(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	resp, err := s.backend.Do(r.Context(), &backend.Request{
		Method:    http.MethodDelete,
		Account:   sr.identity.Account,
		Container: sr.bucket,
		Object:    sr.object,
		Header:    backendHeaders(r, sr.token),
	})
	if err != nil {
		s.backendFailure(w, err)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		w.WriteHeader(http.StatusNoContent)
	case http.StatusUnauthorized, http.StatusForbidden:
		s.writeError(w, s3api.ErrAccessDenied)
	case http.StatusNotFound:
		s.writeError(w, s3api.ErrNoSuchKey)
	default:
		s.writeError(w, s3api.ErrInvalidURI)
	}
}
