package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gridstore/swift-s3-gateway/internal/auth"
	"github.com/gridstore/swift-s3-gateway/internal/config"
	"github.com/gridstore/swift-s3-gateway/internal/s3api"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendCall records what the fake backend saw.
type backendCall struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// fakeBackend is an httptest backend that records the last request and
// replies with a canned response.
type fakeBackend struct {
	server *httptest.Server
	last   *backendCall

	status int
	header http.Header
	body   string
}

func newFakeBackend(status int, body string) *fakeBackend {
	fb := &fakeBackend{status: status, header: http.Header{}, body: body}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		fb.last = &backendCall{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     payload,
		}
		for key, values := range fb.header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(fb.status)
		_, _ = w.Write([]byte(fb.body))
	}))
	return fb
}

func (fb *fakeBackend) Close() { fb.server.Close() }

func newGateway(t *testing.T, backendURL string, mutate ...func(*config.Config)) *Server {
	t.Helper()
	logrus.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{
		BindAddress:     "127.0.0.1:0",
		LogLevel:        "panic",
		LogRoute:        "gateway-test",
		ShutdownTimeout: 1,
		Location:        "US",
		AuthSentinel:    ".authenticated",
		Backend:         config.BackendConfig{Endpoint: backendURL},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	server, err := NewServer(cfg)
	require.NoError(t, err)
	return server
}

func signedRequest(method, target string, body io.Reader) *http.Request {
	r := httptest.NewRequest(method, target, body)
	r.Header.Set("Authorization", "AWS test:tester:c2lnbmF0dXJl")
	r.Header.Set("Date", time.Now().UTC().Format(time.RFC1123Z))
	return r
}

func dispatch(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, r)
	return rec
}

func assertS3Error(t *testing.T, rec *httptest.ResponseRecorder, code s3api.ErrorCode) {
	t.Helper()
	assert.Equal(t, s3api.Status(code), rec.Code)
	assert.Contains(t, rec.Body.String(), "<Code>"+string(code)+"</Code>")
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
}

func TestSplitObjectPath(t *testing.T) {
	cases := []struct {
		path           string
		bucket, object string
		ok             bool
	}{
		{"/", "", "", true},
		{"/bucket", "bucket", "", true},
		{"/bucket/", "bucket", "", true},
		{"/bucket/key", "bucket", "key", true},
		{"/bucket/dir/key", "bucket", "dir/key", true},
		{"//key", "", "", false},
		{"nope", "", "", false},
	}
	for _, tc := range cases {
		bucket, object, ok := splitObjectPath(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.bucket, bucket, tc.path)
		assert.Equal(t, tc.object, object, tc.path)
	}
}

func TestPassthroughUnsigned(t *testing.T) {
	fb := newFakeBackend(http.StatusOK, "native")
	defer fb.Close()
	s := newGateway(t, fb.server.URL)

	rec := dispatch(s, httptest.NewRequest(http.MethodGet, "/v1/acct/cont", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "native", rec.Body.String())
	require.NotNil(t, fb.last)
	assert.Equal(t, "/v1/acct/cont", fb.last.Path)
}

func TestPresignSynthesis(t *testing.T) {
	fb := newFakeBackend(http.StatusOK, "[]")
	defer fb.Close()
	s := newGateway(t, fb.server.URL)

	r := httptest.NewRequest(http.MethodGet,
		"/?AWSAccessKeyId=test:tester&Signature=sig&Expires=1234567890", nil)
	rec := dispatch(s, r)

	// Expires becomes the Date header; epoch seconds are not RFC 2822.
	assertS3Error(t, rec, s3api.ErrAccessDenied)
}

func TestPresignMissingSignature(t *testing.T) {
	s := newGateway(t, "http://127.0.0.1:1")

	rec := dispatch(s, httptest.NewRequest(http.MethodGet, "/?AWSAccessKeyId=test:tester", nil))
	assertS3Error(t, rec, s3api.ErrInvalidArgument)
}

func TestMalformedAuthorization(t *testing.T) {
	s := newGateway(t, "http://127.0.0.1:1")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer token")
	assertS3Error(t, dispatch(s, r), s3api.ErrAccessDenied)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "AWS nocolon")
	assertS3Error(t, dispatch(s, r), s3api.ErrInvalidArgument)
}

func TestSkewedDateRejected(t *testing.T) {
	s := newGateway(t, "http://127.0.0.1:1")

	r := httptest.NewRequest(http.MethodGet, "/bucket", nil)
	r.Header.Set("Authorization", "AWS test:tester:sig")
	r.Header.Set("Date", time.Now().UTC().Add(-11*time.Minute).Format(time.RFC1123Z))

	assertS3Error(t, dispatch(s, r), s3api.ErrRequestTimeTooSkewed)
}

func TestUnparseableDateRejected(t *testing.T) {
	s := newGateway(t, "http://127.0.0.1:1")

	r := httptest.NewRequest(http.MethodGet, "/bucket", nil)
	r.Header.Set("Authorization", "AWS test:tester:sig")
	r.Header.Set("Date", "not a date")

	assertS3Error(t, dispatch(s, r), s3api.ErrAccessDenied)
}

func TestUnknownMethodRejected(t *testing.T) {
	s := newGateway(t, "http://127.0.0.1:1")

	rec := dispatch(s, signedRequest(http.MethodPost, "/bucket/key", nil))
	assertS3Error(t, rec, s3api.ErrInvalidURI)

	rec = dispatch(s, signedRequest(http.MethodDelete, "/", nil))
	assertS3Error(t, rec, s3api.ErrInvalidURI)
}

func TestAuthTokenForwarded(t *testing.T) {
	fb := newFakeBackend(http.StatusOK, "[]")
	defer fb.Close()
	s := newGateway(t, fb.server.URL)

	r := signedRequest(http.MethodGet, "/", nil)
	dispatch(s, r)

	require.NotNil(t, fb.last)
	assert.Equal(t, auth.Token(r), fb.last.Header.Get("X-Auth-Token"))
	assert.Empty(t, fb.last.Header.Get("Authorization"))
}

func TestRequestIDHeader(t *testing.T) {
	fb := newFakeBackend(http.StatusOK, "[]")
	defer fb.Close()
	s := newGateway(t, fb.server.URL)

	rec := dispatch(s, signedRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("x-amz-request-id"))
}

func TestServiceGet(t *testing.T) {
	fb := newFakeBackend(http.StatusOK,
		`[{"name":"b1","owner":"test:tester"},{"name":"b2"}]`)
	defer fb.Close()
	s := newGateway(t, fb.server.URL)

	rec := dispatch(s, signedRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fb.last)
	assert.Equal(t, "/v1/test:tester", fb.last.Path)
	assert.Equal(t, "format=json", fb.last.RawQuery)

	body := rec.Body.String()
	assert.Contains(t, body, `xmlns="`+s3api.NamespaceDoc+`"`)
	assert.Contains(t, body, "<Owner><ID>test:tester</ID><DisplayName>test:tester</DisplayName></Owner>")
	assert.Contains(t, body,
		"<Bucket><Name>b1</Name><CreationDate>2009-02-03T16:45:09.000Z</CreationDate></Bucket>")
	assert.Contains(t, body, "<Name>b2</Name>")
}

func TestServiceGetEmptyAccount(t *testing.T) {
	fb := newFakeBackend(http.StatusOK, "[]")
	defer fb.Close()
	s := newGateway(t, fb.server.URL)

	rec := dispatch(s, signedRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Owner><ID></ID><DisplayName></DisplayName></Owner>")
	assert.NotContains(t, rec.Body.String(), "<Bucket>")
}

func TestServiceGetErrors(t *testing.T) {
	cases := []struct {
		backendStatus int
		want          s3api.ErrorCode
	}{
		{http.StatusUnauthorized, s3api.ErrAccessDenied},
		{http.StatusForbidden, s3api.ErrAccessDenied},
		{http.StatusInternalServerError, s3api.ErrInvalidURI},
	}
	for _, tc := range cases {
		fb := newFakeBackend(tc.backendStatus, "")
		s := newGateway(t, fb.server.URL)

		rec := dispatch(s, signedRequest(http.MethodGet, "/", nil))
		assertS3Error(t, rec, tc.want)
		fb.Close()
	}
}

func TestCanonicalStringCoversForwardedRequest(t *testing.T) {
	fb := newFakeBackend(http.StatusOK, "[]")
	defer fb.Close()
	s := newGateway(t, fb.server.URL)

	r := signedRequest(http.MethodGet, "/bucket/dir/key?versioning", nil)
	dispatch(s, r)

	require.NotNil(t, fb.last)
	token := fb.last.Header.Get("X-Auth-Token")
	require.NotEmpty(t, token)
	// The canonical resource inside the token keeps the subresource and the
	// %2F-encoded object name.
	assert.Equal(t, auth.Token(r), token)
	assert.True(t, strings.HasSuffix(auth.CanonicalString(r), "/bucket/dir%2Fkey?versioning"))
}
