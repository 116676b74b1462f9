package domain

import (
	"strconv"
	"time"
)

type SourceType string

const (
	SourceTypePDF     SourceType = "pdf"
	SourceTypeText    SourceType = "text"
	SourceTypeCSV     SourceType = "csv"
	SourceTypeWebsite SourceType = "website"
)

const (
	DirectInputSource    = "direct-input"
	NoteManualExtraction = "manual extraction required"
)

// Payload keys of flattened metadata.
const (
	KeySource        = "source"
	KeyType          = "type"
	KeyTimestamp     = "timestamp"
	KeyPages         = "pages"
	KeyNote          = "note"
	KeyError         = "error"
	KeyTitle         = "title"
	KeyPage          = "page"
	KeyDocumentIndex = "document_index"
	KeyChunkIndex    = "chunk_index"
	KeyStartIndex    = "start_index"
)

// Metadata is the closed set of metadata shapes a document can carry:
// PDFMeta, TextMeta, WebsiteMeta and DirectInputMeta.
type Metadata interface {
	Source() string
	Type() SourceType
	Fields() map[string]string

	metadata()
}

// PDFMeta describes an uploaded PDF file.
type PDFMeta struct {
	Filename  string
	Pages     int
	Note      string
	Error     string
	Timestamp time.Time

	// PageOffsets holds the byte offset at which each page starts in the
	// document content. It is not persisted.
	PageOffsets []int
}

func (PDFMeta) metadata() {}

func (m PDFMeta) Source() string   { return m.Filename }
func (m PDFMeta) Type() SourceType { return SourceTypePDF }

func (m PDFMeta) Fields() map[string]string {
	fields := baseFields(m, m.Timestamp)
	fields[KeyPages] = itoa(m.Pages)

	if m.Note != "" {
		fields[KeyNote] = m.Note
	}

	if m.Error != "" {
		fields[KeyError] = m.Error
	}

	return fields
}

// PageAt resolves the 1-based page containing the byte offset, or 0 when
// page boundaries are unknown.
func (m PDFMeta) PageAt(offset int) int {
	page := 0
	for i, start := range m.PageOffsets {
		if offset < start {
			break
		}

		page = i + 1
	}

	return page
}

// TextMeta describes an uploaded plain text or CSV file.
type TextMeta struct {
	Filename  string
	Kind      SourceType
	Timestamp time.Time
}

func (TextMeta) metadata() {}

func (m TextMeta) Source() string { return m.Filename }

func (m TextMeta) Type() SourceType {
	if m.Kind == "" {
		return SourceTypeText
	}

	return m.Kind
}

func (m TextMeta) Fields() map[string]string {
	return baseFields(m, m.Timestamp)
}

// WebsiteMeta describes a scraped web page.
type WebsiteMeta struct {
	URL       string
	Title     string
	Timestamp time.Time
}

func (WebsiteMeta) metadata() {}

func (m WebsiteMeta) Source() string   { return m.URL }
func (m WebsiteMeta) Type() SourceType { return SourceTypeWebsite }

func (m WebsiteMeta) Fields() map[string]string {
	fields := baseFields(m, m.Timestamp)
	if m.Title != "" {
		fields[KeyTitle] = m.Title
	}

	return fields
}

// DirectInputMeta describes text submitted directly by the user.
type DirectInputMeta struct {
	Timestamp time.Time
}

func (DirectInputMeta) metadata() {}

func (m DirectInputMeta) Source() string   { return DirectInputSource }
func (m DirectInputMeta) Type() SourceType { return SourceTypeText }

func (m DirectInputMeta) Fields() map[string]string {
	return baseFields(m, m.Timestamp)
}

// ParseMetadata rebuilds typed metadata from a flattened payload.
func ParseMetadata(fields map[string]string) Metadata {
	ts, _ := time.Parse(time.RFC3339Nano, fields[KeyTimestamp])
	source := fields[KeySource]

	switch SourceType(fields[KeyType]) {
	case SourceTypePDF:
		return PDFMeta{
			Filename:  source,
			Pages:     atoi(fields[KeyPages]),
			Note:      fields[KeyNote],
			Error:     fields[KeyError],
			Timestamp: ts,
		}

	case SourceTypeWebsite:
		return WebsiteMeta{
			URL:       source,
			Title:     fields[KeyTitle],
			Timestamp: ts,
		}

	case SourceTypeCSV:
		return TextMeta{
			Filename:  source,
			Kind:      SourceTypeCSV,
			Timestamp: ts,
		}

	default:
		if source == DirectInputSource {
			return DirectInputMeta{Timestamp: ts}
		}

		return TextMeta{
			Filename:  source,
			Kind:      SourceTypeText,
			Timestamp: ts,
		}
	}
}

func baseFields(m Metadata, ts time.Time) map[string]string {
	fields := map[string]string{
		KeySource: m.Source(),
		KeyType:   string(m.Type()),
	}

	if !ts.IsZero() {
		fields[KeyTimestamp] = ts.UTC().Format(time.RFC3339Nano)
	}

	return fields
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func atoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return i
}
