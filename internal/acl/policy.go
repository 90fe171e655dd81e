package acl

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
)

// Permissions a grant may carry. FULL_CONTROL fans out to the other four.
var allPermissions = []string{"READ", "WRITE", "READ_ACP", "WRITE_ACP"}

// Policy is a parsed AccessControlPolicy document, reduced to what the
// translation needs: an owner id and per-grantee permission lists.
type Policy struct {
	Owner  string
	Grants []Grant
}

// Grant is one grantee with its permissions. User holds the grantee
// identifier: a canonical user id, a group URI or an email address,
// whichever the document supplied first in that order of preference.
type Grant struct {
	User        string
	Permissions []string
}

type parsedGrantee struct {
	ID           string `xml:"ID"`
	URI          string `xml:"URI"`
	EmailAddress string `xml:"EmailAddress"`
}

type parsedGrant struct {
	Grantee    parsedGrantee `xml:"Grantee"`
	Permission string        `xml:"Permission"`
}

type parsedPolicy struct {
	XMLName xml.Name      `xml:"AccessControlPolicy"`
	OwnerID string        `xml:"Owner>ID"`
	Grants  []parsedGrant `xml:"AccessControlList>Grant"`
}

// ParsePolicy parses an AccessControlPolicy XML body.
func ParsePolicy(body []byte) (*Policy, error) {
	var doc parsedPolicy
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("malformed access control policy: %w", err)
	}

	policy := &Policy{Owner: doc.OwnerID}
	for _, grant := range doc.Grants {
		user := grant.Grantee.ID
		if user == "" {
			user = grant.Grantee.URI
		}
		if user == "" {
			user = grant.Grantee.EmailAddress
		}
		entry := Grant{User: user}
		if grant.Permission != "" {
			entry.Permissions = append(entry.Permissions, grant.Permission)
		}
		policy.Grants = append(policy.Grants, entry)
	}
	return policy, nil
}

// headerSuffix converts a permission name to its header spelling:
// READ_ACP becomes Read-Acp.
func headerSuffix(permission string) string {
	parts := strings.Split(strings.ToLower(permission), "_")
	for i, part := range parts {
		if part != "" {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "-")
}

// permissionHeader maps a permission to its backend header key. Container
// WRITE lives on the legacy X-Container-Write header; everything else uses
// the Acl- family.
func permissionHeader(resource Resource, permission string) string {
	suffix := headerSuffix(permission)
	if resource == ResourceObject {
		return "X-Object-Acl-" + suffix
	}
	if permission == "WRITE" {
		return "X-Container-Write"
	}
	return "X-Container-Acl-" + suffix
}

// baselineHeaders lists every ACL header a translation resets, so a policy
// that drops a grantee clears the backend grant as well.
func baselineHeaders(resource Resource) []string {
	if resource == ResourceObject {
		return []string{
			"X-Object-Acl-Read",
			"X-Object-Acl-Write",
			"X-Object-Acl-Read-Acp",
			"X-Object-Acl-Write-Acp",
		}
	}
	return []string{
		"X-Container-Read",
		"X-Container-Acl-Read",
		"X-Container-Write",
		"X-Container-Acl-Read-Acp",
		"X-Container-Acl-Write-Acp",
	}
}

// HeadersFromPolicy translates a parsed policy to backend ACL headers.
// FULL_CONTROL fans out to all four permissions; the AllUsers and
// AuthenticatedUsers group URIs are replaced by their backend spellings
// (".r:*" and the configured sentinel). Every baseline header is present
// in the result, empty when no grantee holds the permission.
func HeadersFromPolicy(policy *Policy, resource Resource, sentinel string) map[string]string {
	grants := make(map[string][]string)
	for _, key := range baselineHeaders(resource) {
		grants[key] = nil
	}

	for _, grant := range policy.Grants {
		if grant.User == "" {
			continue
		}
		perms := grant.Permissions
		for _, p := range perms {
			if p == "FULL_CONTROL" {
				perms = allPermissions
				break
			}
		}
		user := grant.User
		switch user {
		case AllUsersURI:
			user = PublicReferrer
		case AuthenticatedUsersURI:
			user = sentinel
		}
		for _, permission := range perms {
			key := permissionHeader(resource, permission)
			if !containsString(grants[key], user) {
				grants[key] = append(grants[key], user)
			}
		}
	}

	headers := make(map[string]string, len(grants))
	for key, users := range grants {
		headers[key] = strings.Join(users, ",")
	}
	return headers
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Emission document types. The xsi attributes are written literally; the
// namespace prefix form is what S3 clients expect on Grantee elements.

type emitGrantee struct {
	XMLName     xml.Name `xml:"Grantee"`
	XmlnsXsi    string   `xml:"xmlns:xsi,attr"`
	Type        string   `xml:"xsi:type,attr"`
	ID          string   `xml:"ID,omitempty"`
	DisplayName string   `xml:"DisplayName,omitempty"`
	URI         string   `xml:"URI,omitempty"`
}

type emitGrant struct {
	XMLName    xml.Name    `xml:"Grant"`
	Grantee    emitGrantee `xml:"Grantee"`
	Permission string      `xml:"Permission"`
}

type emitOwner struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
}

type emitACL struct {
	Grants []emitGrant `xml:"Grant"`
}

// PolicyDocument is an AccessControlPolicy ready for XML emission.
type PolicyDocument struct {
	XMLName xml.Name   `xml:"AccessControlPolicy"`
	Owner   *emitOwner `xml:"Owner,omitempty"`
	ACL     emitACL    `xml:"AccessControlList"`
}

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

func groupGrant(uri, permission string) emitGrant {
	return emitGrant{
		Grantee:    emitGrantee{XmlnsXsi: xsiNamespace, Type: "Group", URI: uri},
		Permission: permission,
	}
}

func userGrant(id, permission string) emitGrant {
	return emitGrant{
		Grantee:    emitGrantee{XmlnsXsi: xsiNamespace, Type: "CanonicalUser", ID: id, DisplayName: id},
		Permission: permission,
	}
}

// aclHeaders lists the ACL headers a resource advertises on backend
// responses, in emission order.
func aclHeaders(resource Resource) []string {
	if resource == ResourceObject {
		return []string{
			"x-object-acl-read",
			"x-object-acl-write",
			"x-object-acl-read-acp",
			"x-object-acl-write-acp",
		}
	}
	return []string{
		"x-container-read",
		"x-container-write",
		"x-container-acl-read",
		"x-container-acl-read-acp",
		"x-container-acl-write-acp",
	}
}

// headerPermission derives the permission name from an ACL header key.
func headerPermission(resource Resource, header string) string {
	var suffix string
	switch {
	case resource == ResourceObject:
		suffix = strings.TrimPrefix(header, "x-object-acl-")
	case strings.HasPrefix(header, "x-container-acl-"):
		suffix = strings.TrimPrefix(header, "x-container-acl-")
	default:
		suffix = strings.TrimPrefix(header, "x-container-")
	}
	return strings.ReplaceAll(strings.ToUpper(suffix), "-", "_")
}

// DocumentFromHeaders builds an AccessControlPolicy from backend response
// headers. Referrer entries become Group grantees (the "*" referrer maps
// to the AllUsers URI); named groups become CanonicalUser grantees. The
// Owner section is present only when the backend supplied an owner header.
func DocumentFromHeaders(resource Resource, headers http.Header) *PolicyDocument {
	doc := &PolicyDocument{}

	if owner := headers.Get(fmt.Sprintf("x-%s-owner", resource)); owner != "" {
		doc.Owner = &emitOwner{ID: owner, DisplayName: owner}
	}

	for _, header := range aclHeaders(resource) {
		value := headers.Get(header)
		if value == "" {
			continue
		}
		permission := headerPermission(resource, header)
		referrers, groups := parseBackendACL(value)
		for _, ref := range referrers {
			uri := ref
			if ref == "*" {
				uri = AllUsersURI
			}
			doc.ACL.Grants = append(doc.ACL.Grants, groupGrant(uri, permission))
		}
		for _, group := range groups {
			doc.ACL.Grants = append(doc.ACL.Grants, userGrant(group, permission))
		}
	}
	return doc
}
