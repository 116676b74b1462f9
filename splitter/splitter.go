package splitter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/flarexio/ragblade/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried from coarsest to finest. The empty
// separator splits between characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

type Config struct {
	ChunkSize    int `yaml:"chunkSize"`
	ChunkOverlap int `yaml:"chunkOverlap"`
}

// Option configures a Splitter.
type Option func(*Splitter)

func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.chunkOverlap = overlap
	}
}

func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		s.separators = separators
	}
}

// Splitter is a recursive character text splitter. Sizes are measured in
// characters.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   DefaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}

	if s.chunkOverlap < 0 {
		s.chunkOverlap = 0
	}

	if s.chunkOverlap >= s.chunkSize {
		s.chunkOverlap = s.chunkSize / 4
	}

	return s
}

// NewFromConfig builds a Splitter, keeping defaults for unset fields.
func NewFromConfig(cfg Config) *Splitter {
	var opts []Option
	if cfg.ChunkSize > 0 {
		opts = append(opts, WithChunkSize(cfg.ChunkSize))
	}

	if cfg.ChunkOverlap > 0 {
		opts = append(opts, WithChunkOverlap(cfg.ChunkOverlap))
	}

	return New(opts...)
}

func (s *Splitter) ChunkSize() int    { return s.chunkSize }
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split turns documents into chunks, preserving document order and chunk
// order within each document.
func (s *Splitter) Split(docs []domain.Document) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(docs))

	for i, doc := range docs {
		pdf, isPDF := doc.Metadata.(domain.PDFMeta)

		for j, span := range s.SplitText(doc.Content) {
			origin := domain.Origin{
				DocumentIndex: i,
				ChunkIndex:    j,
				StartIndex:    span.Start,
			}

			if isPDF {
				origin.Page = pdf.PageAt(span.Start)
			}

			chunks = append(chunks, domain.Chunk{
				Content:  span.Text,
				Metadata: doc.Metadata,
				Origin:   origin,
			})
		}
	}

	return chunks
}

// Span is a chunk of text and the byte offset where it starts in the
// source text.
type Span struct {
	Text  string
	Start int
}

// End is the byte offset just past the span in the source text.
func (s Span) End() int {
	return s.Start + len(s.Text)
}

// SplitText splits a single text. Spans are whitespace-trimmed substrings
// of text. Whitespace-only text yields no spans.
func (s *Splitter) SplitText(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.split(text, 0, s.separators, nil)
	return s.merge(text, pieces)
}

type piece struct {
	start int
	end   int
	runes int
}

// split tiles text[offset:] with pieces no longer than the chunk size.
// Each piece keeps its trailing separator.
func (s *Splitter) split(text string, offset int, separators []string, out []piece) []piece {
	n := utf8.RuneCountInString(text)
	if n <= s.chunkSize {
		return append(out, piece{offset, offset + len(text), n})
	}

	sep, rest, found := "", []string(nil), false
	for i, candidate := range separators {
		if candidate == "" {
			break
		}

		if strings.Contains(text, candidate) {
			sep, rest, found = candidate, separators[i+1:], true
			break
		}
	}

	if !found {
		for i := 0; i < len(text); {
			_, size := utf8.DecodeRuneInString(text[i:])
			out = append(out, piece{offset + i, offset + i + size, 1})
			i += size
		}

		return out
	}

	start := 0
	for start < len(text) {
		end := len(text)
		if idx := strings.Index(text[start:], sep); idx >= 0 {
			end = start + idx + len(sep)
		}

		part := text[start:end]

		size := utf8.RuneCountInString(part)
		if size > s.chunkSize {
			out = s.split(part, offset+start, rest, out)
		} else {
			out = append(out, piece{offset + start, offset + end, size})
		}

		start = end
	}

	return out
}

// merge packs consecutive pieces into windows of at most chunkSize
// characters. After a window is emitted, only trailing pieces totalling at
// most chunkOverlap characters are carried into the next one.
func (s *Splitter) merge(text string, pieces []piece) []Span {
	var (
		spans  []Span
		window []piece
		total  int
	)

	for _, p := range pieces {
		if total+p.runes > s.chunkSize && len(window) > 0 {
			spans = appendSpan(spans, text, window)

			for len(window) > 0 && (total > s.chunkOverlap || total+p.runes > s.chunkSize) {
				total -= window[0].runes
				window = window[1:]
			}
		}

		window = append(window, p)
		total += p.runes
	}

	if len(window) > 0 {
		spans = appendSpan(spans, text, window)
	}

	return spans
}

func appendSpan(spans []Span, text string, window []piece) []Span {
	start, end := window[0].start, window[len(window)-1].end
	raw := text[start:end]

	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
	content := strings.TrimRightFunc(trimmed, unicode.IsSpace)
	if content == "" {
		return spans
	}

	span := Span{
		Text:  content,
		Start: start + len(raw) - len(trimmed),
	}

	// a window holding only carried overlap and whitespace adds no text
	if n := len(spans); n > 0 && span.End() <= spans[n-1].End() {
		return spans
	}

	return append(spans, span)
}
