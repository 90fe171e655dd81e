package auth

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// subresources is the closed set of query parameters that participate in
// the canonical resource, already in lexicographic byte order.
var subresources = []string{
	"acl",
	"location",
	"logging",
	"requestPayment",
	"torrent",
	"versionId",
	"versioning",
	"versions",
}

// CanonicalString canonicalizes a request into the token the signature
// covers. The layout is bit-exact: method, Content-MD5, Content-Type, the
// Date line (empty when x-amz-date is signed, absent when neither header
// exists), the sorted lowercased x-amz-* headers, then the canonical
// resource.
func CanonicalString(r *http.Request) string {
	var buf strings.Builder

	buf.WriteString(r.Method)
	buf.WriteByte('\n')
	buf.WriteString(r.Header.Get("Content-MD5"))
	buf.WriteByte('\n')
	buf.WriteString(r.Header.Get("Content-Type"))
	buf.WriteByte('\n')

	amz := make(map[string]string)
	for key := range r.Header {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-amz-") {
			amz[lower] = r.Header.Get(key)
		}
	}

	if _, ok := amz["x-amz-date"]; ok {
		buf.WriteByte('\n')
	} else if date := r.Header.Get("Date"); date != "" {
		buf.WriteString(date)
		buf.WriteByte('\n')
	}

	keys := make([]string, 0, len(amz))
	for key := range amz {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(amz[key])
		buf.WriteByte('\n')
	}

	buf.WriteString(canonicalResource(r.URL))
	return buf.String()
}

// Token encodes the canonical string into the backend auth token.
func Token(r *http.Request) string {
	return base64.URLEncoding.EncodeToString([]byte(CanonicalString(r)))
}

// canonicalResource is the escaped request path with the object segment
// re-encoded so embedded slashes become %2F, plus any surviving
// subresource parameters in lexicographic key order.
func canonicalResource(u *url.URL) string {
	path := u.EscapedPath()

	segs := strings.Split(path, "/")
	if len(segs) > 2 && segs[2] != "" {
		object := strings.Join(segs[2:], "/")
		path = strings.Join(append(segs[:2], quoteAll(unquote(object))), "/")
	}

	query := u.Query()
	var params []string
	for _, key := range subresources {
		if values, ok := query[key]; ok {
			for _, value := range values {
				if value != "" {
					params = append(params, key+"="+value)
				} else {
					params = append(params, key)
				}
			}
		}
	}
	if len(params) > 0 {
		return path + "?" + strings.Join(params, "&")
	}
	return path
}

// unquote decodes percent escapes, leaving the input untouched when it is
// not valid percent-encoding.
func unquote(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_.-~"

// quoteAll percent-encodes every byte outside the unreserved set,
// including slashes.
func quoteAll(s string) string {
	const hex = "0123456789ABCDEF"
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(unreserved, c) >= 0 {
			buf.WriteByte(c)
		} else {
			buf.WriteByte('%')
			buf.WriteByte(hex[c>>4])
			buf.WriteByte(hex[c&0xf])
		}
	}
	return buf.String()
}
