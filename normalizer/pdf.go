package normalizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/domain"
)

var (
	ErrNoPDFText          = errors.New("no extractable text found in PDF")
	ErrUndecodablePDFText = errors.New("PDF text uses a font encoding that cannot be decoded")
)

// normalizePDF never fails. Unreadable files degrade to a single
// placeholder document asking for manual extraction.
func (n *Normalizer) normalizePDF(ctx context.Context, filename string, data []byte) []domain.Document {
	log := n.log.With(
		zap.String("action", "normalize_pdf"),
		zap.String("filename", filename),
	)

	now := n.now()

	content, offsets, pages, err := extractPDF(ctx, log, data)
	if err != nil {
		log.Warn("pdf text extraction failed", zap.Error(err))

		doc := domain.Document{
			Content: fmt.Sprintf(
				"The PDF file %q was uploaded, but its text could not be extracted automatically. "+
					"It may be a scanned or image-only document. Manual extraction is required. Error: %v",
				filename, err,
			),
			Metadata: domain.PDFMeta{
				Filename:  filename,
				Pages:     pages,
				Note:      domain.NoteManualExtraction,
				Error:     err.Error(),
				Timestamp: now,
			},
		}

		return []domain.Document{doc}
	}

	log.Debug("pdf text extracted", zap.Int("pages", pages))

	doc := domain.Document{
		Content: content,
		Metadata: domain.PDFMeta{
			Filename:    filename,
			Pages:       pages,
			PageOffsets: offsets,
			Timestamp:   now,
		},
	}

	return []domain.Document{doc}
}

// extractPDF returns the page-headed text of every page and the byte
// offset where each page starts.
func extractPDF(ctx context.Context, log *zap.Logger, data []byte) (content string, offsets []int, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := openPDF(log, data)
	if err != nil {
		return "", nil, 0, err
	}

	pages = r.NumPage()

	var (
		sb    strings.Builder
		found bool
	)

	for pageNr := 1; pageNr <= pages; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", nil, pages, err
		}

		text, err := pageText(r.Page(pageNr))
		if err != nil {
			return "", nil, pages, fmt.Errorf("page %d: %w", pageNr, err)
		}

		if pageNr > 1 {
			sb.WriteString("\n\n")
		}

		offsets = append(offsets, sb.Len())

		fmt.Fprintf(&sb, "--- Page %d ---\n", pageNr)
		sb.WriteString(text)

		if text != "" {
			found = true
		}
	}

	if !found {
		return "", nil, pages, ErrNoPDFText
	}

	return sb.String(), offsets, pages, nil
}

// openPDF falls back to a pdfcpu rewrite when the file's cross-reference
// data is too damaged for the text reader.
func openPDF(log *zap.Logger, data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		return r, nil
	}

	repaired, repairErr := repairPDF(data)
	if repairErr != nil {
		return nil, errors.Join(err, repairErr)
	}

	log.Debug("pdf repaired before extraction", zap.NamedError("cause", err))

	return pdf.NewReader(bytes.NewReader(repaired), int64(len(repaired)))
}

func repairPDF(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, conf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func pageText(page pdf.Page) (string, error) {
	if page.V.IsNull() {
		return "", nil
	}

	raw, err := page.GetPlainText(nil)
	if err != nil {
		return "", err
	}

	text := collapseLines(raw)
	if !decodable(text) {
		return "", ErrUndecodablePDFText
	}

	return text, nil
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")

	kept := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}

// decodable reports whether text reads as text. Glyph ids of fonts
// without a usable ToUnicode map come out as control, replacement or
// private-use runes.
func decodable(text string) bool {
	var total, bad int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}

		total++

		if r == utf8.RuneError || unicode.IsControl(r) || unicode.Is(unicode.Co, r) {
			bad++
		}
	}

	return bad*10 <= total
}
