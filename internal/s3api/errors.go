package s3api

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorCode names an entry of the S3 error taxonomy.
type ErrorCode string

// The closed set of error codes the gateway emits.
const (
	ErrAccessDenied          ErrorCode = "AccessDenied"
	ErrBucketAlreadyExists   ErrorCode = "BucketAlreadyExists"
	ErrBucketNotEmpty        ErrorCode = "BucketNotEmpty"
	ErrInvalidArgument       ErrorCode = "InvalidArgument"
	ErrInvalidBucketName     ErrorCode = "InvalidBucketName"
	ErrInvalidURI            ErrorCode = "InvalidURI"
	ErrInvalidDigest         ErrorCode = "InvalidDigest"
	ErrBadDigest             ErrorCode = "BadDigest"
	ErrNoSuchBucket          ErrorCode = "NoSuchBucket"
	ErrSignatureDoesNotMatch ErrorCode = "SignatureDoesNotMatch"
	ErrRequestTimeTooSkewed  ErrorCode = "RequestTimeTooSkewed"
	ErrNoSuchKey             ErrorCode = "NoSuchKey"
	ErrUnsupported           ErrorCode = "Unsupported"
	ErrMissingContentLength  ErrorCode = "MissingContentLength"
	ErrIllegalVersioning     ErrorCode = "IllegalVersioningConfigurationException"
	ErrMalformedACL          ErrorCode = "MalformedACLError"
)

type errorEntry struct {
	status  int
	message string
}

var errorTable = map[ErrorCode]errorEntry{
	ErrAccessDenied:        {http.StatusForbidden, "Access denied"},
	ErrBucketAlreadyExists: {http.StatusConflict, "The requested bucket name is not available"},
	ErrBucketNotEmpty:      {http.StatusConflict, "The bucket you tried to delete is not empty"},
	ErrInvalidArgument:     {http.StatusBadRequest, "Invalid Argument"},
	ErrInvalidBucketName:   {http.StatusBadRequest, "The specified bucket is not valid"},
	ErrInvalidURI:          {http.StatusBadRequest, "Could not parse the specified URI"},
	ErrInvalidDigest:       {http.StatusBadRequest, "The Content-MD5 you specified was invalid"},
	ErrBadDigest:           {http.StatusBadRequest, "The Content-Length you specified was invalid"},
	ErrNoSuchBucket:        {http.StatusNotFound, "The specified bucket does not exist"},
	ErrSignatureDoesNotMatch: {http.StatusForbidden,
		"The calculated request signature does not match your provided one"},
	ErrRequestTimeTooSkewed: {http.StatusForbidden,
		"The difference between the request time and the current time is too large"},
	ErrNoSuchKey:            {http.StatusNotFound, "The resource you requested does not exist"},
	ErrUnsupported:          {http.StatusNotImplemented, "The feature you requested is not yet implemented"},
	ErrMissingContentLength: {http.StatusLengthRequired, "Length Required"},
	ErrIllegalVersioning:    {http.StatusBadRequest, "The specified versioning configuration invalid"},
	ErrMalformedACL: {http.StatusBadRequest,
		"The XML you provided was not well-formed or did not validate against our published schema"},
}

// Status returns the HTTP status for an error code. Unknown codes map to 500.
func Status(code ErrorCode) int {
	if entry, ok := errorTable[code]; ok {
		return entry.status
	}
	return http.StatusInternalServerError
}

// Message returns the wire message for an error code.
func Message(code ErrorCode) string {
	if entry, ok := errorTable[code]; ok {
		return entry.message
	}
	return "Internal error"
}

// ErrorWriter emits S3 error documents.
type ErrorWriter struct {
	logger *logrus.Entry
}

// NewErrorWriter creates a new error response writer
func NewErrorWriter(logger *logrus.Entry) *ErrorWriter {
	return &ErrorWriter{
		logger: logger,
	}
}

// WriteError writes the standard S3 error document for code. The document
// layout (CRLF line endings, two-space indent) is part of the wire contract
// and is kept byte for byte.
func (e *ErrorWriter) WriteError(w http.ResponseWriter, code ErrorCode) {
	status := Status(code)

	e.logger.WithFields(logrus.Fields{
		"error_code":  string(code),
		"status_code": status,
	}).Debug("Writing S3 error response")

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)

	doc := fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\r\n"+
		"<Error>\r\n"+
		"  <Code>%s</Code>\r\n"+
		"  <Message>%s</Message>\r\n"+
		"</Error>\r\n", code, Message(code))

	if _, err := w.Write([]byte(doc)); err != nil {
		e.logger.WithError(err).Error("Failed to write error response")
	}
}
