package s3api

import (
	"encoding/xml"
	"net/http"

	"github.com/sirupsen/logrus"
)

// XML namespaces used by the response documents. The two spellings are not
// interchangeable; each document keeps the namespace S3 historically used
// for it.
const (
	NamespaceDoc     = "http://doc.s3.amazonaws.com/2006-03-01"
	NamespaceService = "http://s3.amazonaws.com/doc/2006-03-01"
	NamespaceSlash   = "http://s3.amazonaws.com/doc/2006-03-01/"
)

// Owner is the <Owner> section shared by listing documents.
type Owner struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
}

// Bucket is one <Bucket> entry of a service listing.
type Bucket struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

// ListAllMyBucketsResult is the GET Service response document.
type ListAllMyBucketsResult struct {
	XMLName xml.Name `xml:"ListAllMyBucketsResult"`
	Xmlns   string   `xml:"xmlns,attr"`
	Owner   Owner    `xml:"Owner"`
	Buckets []Bucket `xml:"Buckets>Bucket"`
}

// Contents is one object entry of a bucket listing.
type Contents struct {
	XMLName      xml.Name `xml:"Contents"`
	Key          string   `xml:"Key"`
	LastModified string   `xml:"LastModified"`
	ETag         string   `xml:"ETag"`
	Size         int64    `xml:"Size"`
	StorageClass string   `xml:"StorageClass"`
	Owner        Owner    `xml:"Owner"`
}

// CommonPrefix is one <CommonPrefixes> entry of a bucket listing.
type CommonPrefix struct {
	XMLName xml.Name `xml:"CommonPrefixes"`
	Prefix  string   `xml:"Prefix"`
}

// ListBucketResult is the GET Bucket response document.
type ListBucketResult struct {
	XMLName     xml.Name       `xml:"ListBucketResult"`
	Xmlns       string         `xml:"xmlns,attr"`
	Prefix      string         `xml:"Prefix"`
	Marker      string         `xml:"Marker"`
	Delimiter   string         `xml:"Delimiter"`
	IsTruncated bool           `xml:"IsTruncated"`
	MaxKeys     int            `xml:"MaxKeys"`
	Name        string         `xml:"Name"`
	Contents    []Contents     `xml:"Contents"`
	Prefixes    []CommonPrefix `xml:"CommonPrefixes"`
}

// VersionEntry is either a Version or a DeleteMarker. The backend decides
// the interleaving; the document preserves it.
type VersionEntry interface {
	isVersionEntry()
}

// Version is one live object version in a versions listing.
type Version struct {
	XMLName      xml.Name `xml:"Version"`
	Key          string   `xml:"Key"`
	VersionID    string   `xml:"VersionId"`
	IsLatest     bool     `xml:"IsLatest"`
	LastModified string   `xml:"LastModified"`
	ETag         string   `xml:"ETag"`
	Size         int64    `xml:"Size"`
	StorageClass string   `xml:"StorageClass"`
	Owner        Owner    `xml:"Owner"`
}

func (Version) isVersionEntry() {}

// DeleteMarker is one tombstone entry in a versions listing.
type DeleteMarker struct {
	XMLName      xml.Name `xml:"DeleteMarker"`
	Key          string   `xml:"Key"`
	VersionID    string   `xml:"VersionId"`
	IsLatest     bool     `xml:"IsLatest"`
	LastModified string   `xml:"LastModified"`
}

func (DeleteMarker) isVersionEntry() {}

// ListVersionsResult is the GET Bucket ?versions response document.
type ListVersionsResult struct {
	XMLName         xml.Name       `xml:"ListVersionsResult"`
	Xmlns           string         `xml:"xmlns,attr"`
	Prefix          string         `xml:"Prefix"`
	KeyMarker       string         `xml:"KeyMarker"`
	VersionIDMarker string         `xml:"VersionIdMarker"`
	Delimiter       string         `xml:"Delimiter"`
	IsTruncated     bool           `xml:"IsTruncated"`
	MaxKeys         int            `xml:"MaxKeys"`
	Name            string         `xml:"Name"`
	Entries         []VersionEntry `xml:"-"`
	Prefixes        []CommonPrefix `xml:"CommonPrefixes"`
}

// MarshalXML emits the entries between Name and CommonPrefixes, keeping the
// backend's interleaving of Version and DeleteMarker elements.
func (r ListVersionsResult) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	type shadow struct {
		XMLName         xml.Name       `xml:"ListVersionsResult"`
		Xmlns           string         `xml:"xmlns,attr"`
		Prefix          string         `xml:"Prefix"`
		KeyMarker       string         `xml:"KeyMarker"`
		VersionIDMarker string         `xml:"VersionIdMarker"`
		Delimiter       string         `xml:"Delimiter"`
		IsTruncated     bool           `xml:"IsTruncated"`
		MaxKeys         int            `xml:"MaxKeys"`
		Name            string         `xml:"Name"`
		Entries         []interface{}
		Prefixes        []CommonPrefix `xml:"CommonPrefixes"`
	}
	s := shadow{
		Xmlns:           r.Xmlns,
		Prefix:          r.Prefix,
		KeyMarker:       r.KeyMarker,
		VersionIDMarker: r.VersionIDMarker,
		Delimiter:       r.Delimiter,
		IsTruncated:     r.IsTruncated,
		MaxKeys:         r.MaxKeys,
		Name:            r.Name,
		Prefixes:        r.Prefixes,
	}
	for _, entry := range r.Entries {
		s.Entries = append(s.Entries, entry)
	}
	return e.Encode(s)
}

// LocationConstraint is the GET Bucket ?location response document. An
// empty Value produces an empty element, which is how "US" is expressed.
type LocationConstraint struct {
	XMLName xml.Name `xml:"LocationConstraint"`
	Xmlns   string   `xml:"xmlns,attr"`
	Value   string   `xml:",chardata"`
}

// VersioningConfiguration is the GET Bucket ?versioning response document.
type VersioningConfiguration struct {
	XMLName xml.Name `xml:"VersioningConfiguration"`
	Xmlns   string   `xml:"xmlns,attr"`
	Status  string   `xml:"Status"`
}

// BucketLoggingStatus is the GET Bucket ?logging response document.
// Logging is advertised as always disabled, so the element is empty.
type BucketLoggingStatus struct {
	XMLName xml.Name `xml:"BucketLoggingStatus"`
	Xmlns   string   `xml:"xmlns,attr"`
}

// CopyObjectResult is the PUT Object (Copy) response document.
type CopyObjectResult struct {
	XMLName xml.Name `xml:"CopyObjectResult"`
	ETag    string   `xml:"ETag"`
}

// XMLWriter handles XML response writing
type XMLWriter struct {
	logger *logrus.Entry
}

// NewXMLWriter creates a new XML response writer
func NewXMLWriter(logger *logrus.Entry) *XMLWriter {
	return &XMLWriter{
		logger: logger,
	}
}

// WriteXML writes data as an XML document preceded by the XML declaration.
func (x *XMLWriter) WriteXML(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(xml.Header)); err != nil {
		x.logger.WithError(err).Error("Failed to write XML response")
		return
	}
	if err := xml.NewEncoder(w).Encode(data); err != nil {
		x.logger.WithError(err).Error("Failed to write XML response")
	}
}

// WriteBareXML writes data as an XML fragment without the declaration.
// A few legacy documents (versioning, copy result, ACP) ship this way.
func (x *XMLWriter) WriteBareXML(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)

	if err := xml.NewEncoder(w).Encode(data); err != nil {
		x.logger.WithError(err).Error("Failed to write XML response")
	}
}
