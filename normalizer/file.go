package normalizer

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/flarexio/ragblade/domain"
)

const (
	MIMETypePDF  = "application/pdf"
	MIMETypeText = "text/plain"
	MIMETypeCSV  = "text/csv"
)

var mimeAliases = map[string]string{
	"application/csv":             MIMETypeCSV,
	"text/comma-separated-values": MIMETypeCSV,
	"application/x-pdf":           MIMETypePDF,
}

var extensionTypes = map[string]string{
	".pdf": MIMETypePDF,
	".txt": MIMETypeText,
	".csv": MIMETypeCSV,
}

// DetectMIMEType resolves the media type of an upload. The declared type
// wins unless it is missing or generic, then the extension, then the
// sniffed content.
func DetectMIMEType(filename, declared string, data []byte) string {
	if mediaType := baseType(declared); mediaType != "" && mediaType != "application/octet-stream" {
		if alias, ok := mimeAliases[mediaType]; ok {
			return alias
		}

		// Some browsers label CSV files as spreadsheets.
		if mediaType == "application/vnd.ms-excel" && strings.EqualFold(filepath.Ext(filename), ".csv") {
			return MIMETypeCSV
		}

		return mediaType
	}

	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}

	return baseType(mimetype.Detect(data).String())
}

func IsSupportedMIMEType(mediaType string) bool {
	switch mediaType {
	case MIMETypePDF, MIMETypeText, MIMETypeCSV:
		return true
	default:
		return false
	}
}

func baseType(value string) string {
	if value == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}

	return mediaType
}

func (n *Normalizer) normalizeFile(ctx context.Context, filename, declared string, data []byte) ([]domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyContent, filename)
	}

	mediaType := DetectMIMEType(filename, declared, data)

	switch mediaType {
	case MIMETypePDF:
		return n.normalizePDF(ctx, filename, data), nil

	case MIMETypeText, MIMETypeCSV:
		content := strings.TrimPrefix(string(data), "\ufeff")
		if !utf8.ValidString(content) {
			content = strings.ToValidUTF8(content, "\uFFFD")
		}

		if strings.TrimSpace(content) == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrEmptyContent, filename)
		}

		kind := domain.SourceTypeText
		if mediaType == MIMETypeCSV {
			kind = domain.SourceTypeCSV
		}

		doc := domain.Document{
			Content: content,
			Metadata: domain.TextMeta{
				Filename:  filename,
				Kind:      kind,
				Timestamp: n.now(),
			},
		}

		return []domain.Document{doc}, nil

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mediaType)
	}
}
