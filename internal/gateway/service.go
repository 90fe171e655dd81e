package gateway

import (
	"net/http"

	"github.com/gridstore/swift-s3-gateway/internal/backend"
	"github.com/gridstore/swift-s3-gateway/internal/s3api"
)

// The backend does not keep container creation times; a stable placeholder
// keeps naive S3 clients (s3cmd among them) working.
const creationDatePlaceholder = "2009-02-03T16:45:09.000Z"

// serviceGet handles GET Service: list all buckets of the account.
func (s *Server) serviceGet(w http.ResponseWriter, r *http.Request, sr *s3Request) {
	resp, err := s.backend.Do(r.Context(), &backend.Request{
		Method:   http.MethodGet,
		Account:  sr.identity.Account,
		RawQuery: "format=json",
		Header:   backendHeaders(r, sr.token),
	})
	if err != nil {
		s.backendFailure(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			s.writeError(w, s3api.ErrAccessDenied)
		default:
			s.writeError(w, s3api.ErrInvalidURI)
		}
		return
	}

	containers, err := backend.DecodeContainers(resp.Body)
	if err != nil {
		s.backendFailure(w, err)
		return
	}

	owner := ""
	if len(containers) > 0 {
		owner = containers[0].Owner
	}

	doc := s3api.ListAllMyBucketsResult{
		Xmlns: s3api.NamespaceDoc,
		Owner: s3api.Owner{ID: owner, DisplayName: owner},
	}
	for _, container := range containers {
		doc.Buckets = append(doc.Buckets, s3api.Bucket{
			Name:         container.Name,
			CreationDate: creationDatePlaceholder,
		})
	}

	s.xml.WriteXML(w, doc)
}
