package gateway

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gridstore/swift-s3-gateway/internal/acl"
	"github.com/gridstore/swift-s3-gateway/internal/backend"
	"github.com/gridstore/swift-s3-gateway/internal/s3api"
)

// maxBucketListing caps max-keys for bucket listings.
const maxBucketListing = 1000

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// capitalize matches the backend's versioning status spelling to the S3
// document form: enabled -> Enabled.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// bucketGet handles GET Bucket: object listings plus the acl, location,
// versioning, logging and versions subresource views.
func (s *Server) bucketGet(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	query := r.URL.Query()

	maxKeys := maxBucketListing
	if query.Has("max-keys") {
		raw := query.Get("max-keys")
		if !isDigits(raw) {
			s.writeError(w, s3api.ErrInvalidArgument)
			return
		}
		if n, err := strconv.Atoi(raw); err == nil && n < maxKeys {
			maxKeys = n
		}
	}

	breq := &backend.Request{
		Account:   sr.identity.Account,
		Container: sr.bucket,
		Header:    backendHeaders(r, sr.token),
	}

	aclRequested := query.Has("acl")
	if aclRequested {
		// The backend answers ACLs on container metadata, not on a listing.
		breq.Method = http.MethodHead
		breq.RawQuery = r.URL.RawQuery
	} else {
		// One extra item tells us whether the listing is truncated.
		raw := fmt.Sprintf("format=json&limit=%d", maxKeys+1)
		if query.Has("versions") {
			raw += "&versions"
		}
		if query.Has("marker") {
			raw += "&marker=" + url.PathEscape(query.Get("marker"))
		}
		if query.Has("prefix") {
			raw += "&prefix=" + url.PathEscape(query.Get("prefix"))
		}
		if query.Has("delimiter") {
			raw += "&delimiter=" + url.PathEscape(query.Get("delimiter"))
		}
		breq.Method = http.MethodGet
		breq.RawQuery = raw
	}

	resp, err := s.backend.Do(r.Context(), breq)
	if err != nil {
		s.backendFailure(w, err)
		return
	}
	defer resp.Body.Close()

	if aclRequested {
		s.xml.WriteBareXML(w, acl.DocumentFromHeaders(acl.ResourceContainer, resp.Header))
		return
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			s.writeError(w, s3api.ErrAccessDenied)
		case http.StatusNotFound:
			s.writeError(w, s3api.ErrNoSuchBucket)
		default:
			s.writeError(w, s3api.ErrInvalidURI)
		}
		return
	}

	switch {
	case query.Has("location"):
		doc := s3api.LocationConstraint{Xmlns: s3api.NamespaceSlash}
		if s.config.Location != "US" {
			doc.Value = s.config.Location
		}
		s.xml.WriteXML(w, doc)
		return
	case query.Has("versioning"):
		doc := s3api.VersioningConfiguration{
			Xmlns:  s3api.NamespaceSlash,
			Status: capitalize(resp.Header.Get("X-Container-Versioning")),
		}
		s.xml.WriteBareXML(w, doc)
		return
	case query.Has("logging"):
		// logging disabled
		s.xml.WriteXML(w, s3api.BucketLoggingStatus{Xmlns: s3api.NamespaceDoc})
		return
	}

	objects, err := backend.DecodeObjects(resp.Body)
	if err != nil {
		s.backendFailure(w, err)
		return
	}

	truncated := maxKeys > 0 && len(objects) == maxKeys+1

	if query.Has("versions") {
		doc := s3api.ListVersionsResult{
			Xmlns:           s3api.NamespaceService,
			Prefix:          query.Get("prefix"),
			KeyMarker:       query.Get("key-marker"),
			VersionIDMarker: query.Get("version-id-marker"),
			Delimiter:       query.Get("delimiter"),
			IsTruncated:     truncated,
			MaxKeys:         maxKeys,
			Name:            unescapeName(sr.bucket),
		}
		for _, obj := range objects {
			if obj.IsSubdir() {
				continue
			}
			if obj.Deleted {
				doc.Entries = append(doc.Entries, s3api.DeleteMarker{
					Key:          unescapeName(obj.Name),
					VersionID:    obj.VersionID,
					IsLatest:     obj.IsLatest,
					LastModified: obj.LastModified,
				})
			} else {
				doc.Entries = append(doc.Entries, s3api.Version{
					Key:          unescapeName(obj.Name),
					VersionID:    obj.VersionID,
					IsLatest:     obj.IsLatest,
					LastModified: obj.LastModified,
					ETag:         `"` + obj.Hash + `"`,
					Size:         obj.Bytes,
					StorageClass: "STANDARD",
					Owner:        s3api.Owner{ID: obj.Owner, DisplayName: obj.Owner},
				})
			}
		}
		limit := len(objects)
		if maxKeys < limit {
			limit = maxKeys
		}
		for _, obj := range objects[:limit] {
			if obj.IsSubdir() {
				doc.Prefixes = append(doc.Prefixes, s3api.CommonPrefix{Prefix: obj.Subdir})
			}
		}
		s.xml.WriteXML(w, doc)
		return
	}

	doc := s3api.ListBucketResult{
		Xmlns:       s3api.NamespaceService,
		Prefix:      query.Get("prefix"),
		Marker:      query.Get("marker"),
		Delimiter:   query.Get("delimiter"),
		IsTruncated: truncated,
		MaxKeys:     maxKeys,
		Name:        unescapeName(sr.bucket),
	}
	for _, obj := range objects {
		if obj.IsSubdir() {
			doc.Prefixes = append(doc.Prefixes, s3api.CommonPrefix{Prefix: unescapeName(obj.Subdir)})
			continue
		}
		owner := obj.Owner
		if owner == "" {
			owner = sr.identity.Account
		}
		doc.Contents = append(doc.Contents, s3api.Contents{
			Key:          unescapeName(obj.Name),
			LastModified: obj.LastModified + "Z",
			ETag:         obj.Hash,
			Size:         obj.Bytes,
			StorageClass: "STANDARD",
			Owner:        s3api.Owner{ID: owner, DisplayName: owner},
		})
	}
	s.xml.WriteXML(w, doc)
}

// bucketPut handles PUT Bucket: creation with an optional canned ACL, plus
// the acl and versioning subresource writes (which the backend takes as
// POSTs).
func (s *Server) bucketPut(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	if cl := r.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			s.writeError(w, s3api.ErrInvalidArgument)
			return
		}
	}

	if !s3api.ValidBucketName(unescapeName(sr.bucket)) {
		s.writeError(w, s3api.ErrInvalidBucketName)
		return
	}

	query := r.URL.Query()
	headers := backendHeaders(r, sr.token)

	breq := &backend.Request{
		Method:    http.MethodPut,
		Account:   sr.identity.Account,
		Container: sr.bucket,
		Header:    headers,
	}

	aclRequested := query.Has("acl")
	versioningRequested := query.Has("versioning")

	switch {
	case aclRequested:
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
		for key, value := range acl.HeadersFromPolicy(policy, acl.ResourceContainer, s.config.AuthSentinel) {
			headers.Set(key, value)
		}
		breq.Method = http.MethodPost
		breq.RawQuery = r.URL.RawQuery
	case versioningRequested:
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, s3api.ErrIllegalVersioning)
			return
		}
		switch {
		case strings.Contains(string(payload), "Enabled"):
			headers.Set("X-Container-Versioning", "enabled")
		case strings.Contains(string(payload), "Suspended"):
			headers.Set("X-Container-Versioning", "suspended")
		default:
			s.writeError(w, s3api.ErrIllegalVersioning)
			return
		}
		breq.Method = http.MethodPost
		breq.RawQuery = r.URL.RawQuery
	default:
		if canned := r.Header.Get("X-Amz-Acl"); canned != "" {
			headers.Del("X-Amz-Acl")
			translated, err := acl.CannedHeaders(canned)
			if errors.Is(err, acl.ErrUnsupportedCannedACL) {
				s.writeError(w, s3api.ErrUnsupported)
				return
			}
			if err != nil {
				s.writeError(w, s3api.ErrInvalidArgument)
				return
			}
			for _, hv := range translated {
				headers.Set(hv.Key, hv.Value)
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

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusNoContent:
		if !versioningRequested {
			w.Header().Set("Location", unescapeName(sr.bucket))
		}
		w.WriteHeader(http.StatusOK)
	case http.StatusAccepted:
		s.writeError(w, s3api.ErrBucketAlreadyExists)
	case http.StatusUnauthorized, http.StatusForbidden:
		s.writeError(w, s3api.ErrAccessDenied)
	default:
		s.writeError(w, s3api.ErrInvalidURI)
	}
}

// bucketDelete handles DELETE Bucket.
func (s *Server) bucketDelete(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	resp, err := s.backend.Do(r.Context(), &backend.Request{
		Method:    http.MethodDelete,
		Account:   sr.identity.Account,
		Container: sr.bucket,
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
		s.writeError(w, s3api.ErrNoSuchBucket)
	case http.StatusConflict:
		s.writeError(w, s3api.ErrBucketNotEmpty)
	default:
		s.writeError(w, s3api.ErrInvalidURI)
	}
}

// bucketPost handles POST Bucket, which has no backend expression.
func (s *Server) bucketPost(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	s.writeError(w, s3api.ErrUnsupported)
}
