package s3api

import "regexp"

// Bucket names must not be formatted as an IPv4 address.
var dottedQuad = regexp.MustCompile(
	`^(([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])\.){3}` +
		`([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])$`)

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// ValidBucketName reports whether name satisfies the S3 bucket naming
// rules: 3-63 characters, no underscores, alphanumeric first and last
// character, no "..", ".-" or "-." sequences, and not a dotted-quad
// IP literal.
func ValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if !isAlnum(name[0]) || !isAlnum(name[len(name)-1]) {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '_':
			return false
		case '.', '-':
			if i+1 < len(name) && (name[i+1] == '.' ||
				(name[i] == '.' && name[i+1] == '-') ||
				(name[i] == '-' && name[i+1] == '.')) {
				return false
			}
		}
	}
	return !dottedQuad.MatchString(name)
}
