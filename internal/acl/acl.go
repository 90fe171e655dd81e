// Package acl translates between S3 access control documents and the
// backend's referrer/group header form, in both directions.
package acl

import (
	"errors"
	"net/http"
	"strings"
)

// S3 predefined group URIs.
const (
	AllUsersURI          = "http://acs.amazonaws.com/groups/global/AllUsers"
	AuthenticatedUsersURI = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// PublicReferrer is the backend ACL entry granting access to everyone.
const PublicReferrer = ".r:*"

// Resource selects the backend header family an ACL applies to.
type Resource string

const (
	ResourceContainer Resource = "container"
	ResourceObject    Resource = "object"
)

// Canned ACL translation failures.
var (
	ErrUnsupportedCannedACL = errors.New("canned acl not supported")
	ErrUnknownCannedACL     = errors.New("unknown canned acl")
)

// HeaderValue is one backend header produced by a translation.
type HeaderValue struct {
	Key   string
	Value string
}

// CannedHeaders maps an x-amz-acl canned ACL to backend container headers.
// authenticated-read has no backend expression and fails with
// ErrUnsupportedCannedACL; anything outside the canned set fails with
// ErrUnknownCannedACL.
func CannedHeaders(canned string) ([]HeaderValue, error) {
	switch canned {
	case "private":
		return []HeaderValue{
			{Key: "X-Container-Write", Value: "."},
			{Key: "X-Container-Read", Value: "."},
		}, nil
	case "public-read":
		return []HeaderValue{
			{Key: "X-Container-Read", Value: ".r:*,.rlistings"},
		}, nil
	case "public-read-write":
		// The backend cannot grant anonymous listing writes; .r:* on the
		// write header is the closest expression.
		return []HeaderValue{
			{Key: "X-Container-Write", Value: ".r:*"},
			{Key: "X-Container-Read", Value: ".r:*,.rlistings"},
		}, nil
	case "authenticated-read":
		return nil, ErrUnsupportedCannedACL
	default:
		return nil, ErrUnknownCannedACL
	}
}

// isPublic reports whether a backend read/write header value grants access
// to any referrer.
func isPublic(value string) bool {
	return value == PublicReferrer ||
		strings.Contains(value, PublicReferrer+",") ||
		strings.Contains(value, ",*,")
}

// CannedFromHeaders classifies backend container ACL headers into a canned
// summary: private, public-read, public-read-write or public-write. The
// summary is a decision input only; responses always carry the detailed
// policy document.
func CannedFromHeaders(h http.Header) string {
	acl := "private"
	if read := h.Get("X-Container-Read"); read != "" && isPublic(read) {
		acl = "public-read"
	}
	if write := h.Get("X-Container-Write"); write != "" && isPublic(write) {
		if acl == "public-read" {
			acl = "public-read-write"
		} else {
			acl = "public-write"
		}
	}
	return acl
}

// parseBackendACL splits a backend ACL value into referrer patterns and
// named groups. Entries are comma separated; ".r:<pattern>" designates a
// referrer, ".rlistings" toggles anonymous listings and carries no grant,
// everything else names a group or account.
func parseBackendACL(value string) (referrers, groups []string) {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, ".r:") {
			referrers = append(referrers, entry[len(".r:"):])
			continue
		}
		if entry == ".rlistings" {
			continue
		}
		groups = append(groups, entry)
	}
	return referrers, groups
}
