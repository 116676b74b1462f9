package splitter

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarexio/ragblade/domain"
)

var words = []string{
	"retrieval", "augmented", "generation", "splits", "documents", "into",
	"chunks", "that", "overlap", "so", "context", "survives", "boundaries",
}

func sentenceText(paragraphs, sentences, wordsPerSentence int) string {
	var (
		sb strings.Builder
		k  int
	)

	for p := 0; p < paragraphs; p++ {
		if p > 0 {
			sb.WriteString("\n\n")
		}

		for s := 0; s < sentences; s++ {
			if s > 0 {
				sb.WriteString(" ")
			}

			for w := 0; w < wordsPerSentence; w++ {
				if w > 0 {
					sb.WriteString(" ")
				}

				sb.WriteString(words[k%len(words)])
				k++
			}

			sb.WriteString(".")
		}
	}

	return sb.String()
}

// reconstruct joins spans, dropping the overlapped prefix of each span and
// re-inserting the whitespace gaps between non-overlapping spans.
func reconstruct(t *testing.T, text string, spans []Span) string {
	t.Helper()

	var sb strings.Builder

	cursor := -1
	for _, span := range spans {
		end := span.Start + len(span.Text)

		switch {
		case cursor < 0:
			sb.WriteString(span.Text)

		case span.Start >= cursor:
			gap := text[cursor:span.Start]
			require.Empty(t, strings.TrimSpace(gap), "gap between chunks must be whitespace")
			sb.WriteString(gap)
			sb.WriteString(span.Text)

		case end > cursor:
			sb.WriteString(span.Text[cursor-span.Start:])
		}

		if end > cursor {
			cursor = end
		}
	}

	return sb.String()
}

func TestSplitShortDocument(t *testing.T) {
	assert := assert.New(t)

	s := New()
	docs := []domain.Document{{
		Content:  "The sky is blue.",
		Metadata: domain.DirectInputMeta{},
	}}

	chunks := s.Split(docs)
	if !assert.Len(chunks, 1) {
		return
	}

	assert.Equal("The sky is blue.", chunks[0].Content)
	assert.Equal("direct-input", chunks[0].Source())
	assert.Equal(0, chunks[0].Origin.StartIndex)
}

func TestSplitSeparatorsOnly(t *testing.T) {
	s := New(WithChunkSize(4), WithChunkOverlap(1))

	chunks := s.Split([]domain.Document{{Content: "\n\n \n\n\n  \n"}})
	assert.Empty(t, chunks)
}

func TestSplitProperties(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"paragraphs", sentenceText(6, 5, 9), 100, 20},
		{"single line", sentenceText(1, 40, 7), 80, 30},
		{"defaults", sentenceText(20, 12, 11), DefaultChunkSize, DefaultChunkOverlap},
		{"unicode", strings.Repeat("héllo wörld ünïcode tëxt ", 60), 50, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			s := New(WithChunkSize(tt.size), WithChunkOverlap(tt.overlap))
			spans := s.SplitText(tt.text)
			require.NotEmpty(t, spans)

			for i, span := range spans {
				assert.LessOrEqual(utf8.RuneCountInString(span.Text), tt.size)
				assert.Equal(span.Text, tt.text[span.Start:span.Start+len(span.Text)])

				if i == 0 {
					continue
				}

				prev := spans[i-1]
				prevEnd := prev.Start + len(prev.Text)
				assert.Greater(span.Start, prev.Start)

				if span.Start < prevEnd {
					shared := tt.text[span.Start:prevEnd]
					assert.LessOrEqual(utf8.RuneCountInString(shared), tt.overlap)
					assert.True(strings.HasSuffix(prev.Text, shared))
					assert.True(strings.HasPrefix(span.Text, shared))
				}
			}

			assert.Equal(strings.TrimSpace(tt.text), reconstruct(t, tt.text, spans))
		})
	}
}

func TestSplitWordsOverlap(t *testing.T) {
	assert := assert.New(t)

	text := sentenceText(1, 1, 200)

	s := New(WithChunkSize(60), WithChunkOverlap(15))
	spans := s.SplitText(text)
	require.Greater(t, len(spans), 1)

	for i := 1; i < len(spans); i++ {
		prevEnd := spans[i-1].Start + len(spans[i-1].Text)
		assert.Less(spans[i].Start, prevEnd, "consecutive chunks share a word")
	}
}

func TestSplitUnbrokenText(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("abcdefghij", 30)

	s := New(WithChunkSize(25), WithChunkOverlap(5))
	spans := s.SplitText(text)
	require.Len(t, spans, 15)

	for i, span := range spans {
		assert.Equal(i*20, span.Start)
		assert.LessOrEqual(len(span.Text), 25)
	}

	assert.Equal(text, reconstruct(t, text, spans))
}

func TestSplitDeterministic(t *testing.T) {
	text := sentenceText(8, 7, 10)

	first := New(WithChunkSize(120), WithChunkOverlap(30)).SplitText(text)
	second := New(WithChunkSize(120), WithChunkOverlap(30)).SplitText(text)

	assert.Equal(t, first, second)
}

func TestSplitPDFPages(t *testing.T) {
	assert := assert.New(t)

	page1 := "--- Page 1 ---\nAlpha beta gamma."
	page2 := "--- Page 2 ---\nDelta epsilon zeta."
	content := page1 + "\n\n" + page2

	doc := domain.Document{
		Content: content,
		Metadata: domain.PDFMeta{
			Filename:    "greek.pdf",
			Pages:       2,
			PageOffsets: []int{0, len(page1) + 2},
		},
	}

	chunks := New(WithChunkSize(40), WithChunkOverlap(0)).Split([]domain.Document{doc})
	require.Len(t, chunks, 2)

	assert.Equal(page1, chunks[0].Content)
	assert.Equal(1, chunks[0].Origin.Page)
	assert.Equal(page2, chunks[1].Content)
	assert.Equal(2, chunks[1].Origin.Page)
	assert.Equal(1, chunks[1].Origin.ChunkIndex)
}

func TestSplitDocumentOrder(t *testing.T) {
	assert := assert.New(t)

	docs := []domain.Document{
		{Content: "first document", Metadata: domain.TextMeta{Filename: "a.txt"}},
		{Content: "   "},
		{Content: "third document", Metadata: domain.TextMeta{Filename: "c.txt"}},
	}

	chunks := New().Split(docs)
	require.Len(t, chunks, 2)

	assert.Equal(0, chunks[0].Origin.DocumentIndex)
	assert.Equal(2, chunks[1].Origin.DocumentIndex)
	assert.Equal("c.txt", chunks[1].Source())
}

func TestNewClampsOverlap(t *testing.T) {
	assert := assert.New(t)

	s := New(WithChunkSize(100), WithChunkOverlap(100))
	assert.Equal(25, s.ChunkOverlap())

	s = NewFromConfig(Config{})
	assert.Equal(DefaultChunkSize, s.ChunkSize())
	assert.Equal(DefaultChunkOverlap, s.ChunkOverlap())
}

func TestSplitTrailingWhitespaceAddsNoChunk(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 70) + strings.Repeat("\n", 2000) + "closing line."

	spans := New().SplitText(text)
	require.NotEmpty(t, spans)

	for i := 1; i < len(spans); i++ {
		assert.Greater(t, spans[i].End(), spans[i-1].End(), "span %d must reach past span %d", i, i-1)
	}

	last := spans[len(spans)-1]
	assert.Equal(t, "closing line.", last.Text)
	assert.Equal(t, strings.TrimSpace(text), reconstruct(t, text, spans))
}

func TestSplitSpansAlwaysAdvance(t *testing.T) {
	alphabet := []string{"a", "b", "é", " ", ". ", "\n", "\n\n"}
	rng := rand.New(rand.NewSource(42))

	for size := 4; size <= 24; size++ {
		s := New(WithChunkSize(size), WithChunkOverlap(size/3))

		for round := 0; round < 200; round++ {
			var sb strings.Builder
			for i := rng.Intn(120); i > 0; i-- {
				sb.WriteString(alphabet[rng.Intn(len(alphabet))])
			}

			text := sb.String()
			spans := s.SplitText(text)

			for i := 1; i < len(spans); i++ {
				require.Greater(t, spans[i].End(), spans[i-1].End(),
					"size %d text %q: span %d adds no text", size, text, i)
			}

			if len(spans) > 0 {
				require.Equal(t, strings.TrimSpace(text), reconstruct(t, text, spans),
					"size %d text %q", size, text)
			}
		}
	}
}
