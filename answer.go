package ragblade

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/domain"
	"github.com/flarexio/ragblade/vector"
)

// NoResultsReply is returned without calling the model when retrieval
// finds nothing.
const NoResultsReply = "I don't have any relevant information to answer that question. " +
	"Please upload documents, add text, or scrape a website first."

const SystemInstruction = `You are a helpful assistant that answers questions using only the provided context.
Rules:
- Answer strictly from the context below. Do not use outside knowledge.
- If the context does not contain the answer, say that you don't have enough information to answer.
- Cite the source of every fact you use, for example "(Source: notes.txt, page 2)".`

// Retriever finds the chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.Chunk, error)
}

// ChatModel produces a completion for a single prompt.
type ChatModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Answerer struct {
	retriever Retriever
	chat      ChatModel
	k         int
	log       *zap.Logger
}

func NewAnswerer(retriever Retriever, chat ChatModel, k int) *Answerer {
	if k <= 0 {
		k = vector.DefaultK
	}

	return &Answerer{
		retriever: retriever,
		chat:      chat,
		k:         k,
		log: zap.L().With(
			zap.String("component", "answerer"),
		),
	}
}

// Answer retrieves context for question and asks the chat model once.
func (a *Answerer) Answer(ctx context.Context, question string) (string, error) {
	chunks, err := a.retriever.Search(ctx, question, a.k)
	if err != nil {
		return "", err
	}

	if len(chunks) == 0 {
		return NoResultsReply, nil
	}

	prompt := BuildPrompt(question, chunks)

	if ce := a.log.Check(zap.DebugLevel, "prompt built"); ce != nil {
		fields := []zap.Field{zap.Int("chunks", len(chunks))}
		if n, err := CountTokens(prompt); err == nil {
			fields = append(fields, zap.Int("tokens_estimate", n))
		}

		ce.Write(fields...)
	}

	reply, err := a.chat.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAnswerGeneration, err)
	}

	return reply, nil
}

// FormatContext renders chunks as numbered documents in rank order.
func FormatContext(chunks []domain.Chunk) string {
	entries := make([]string, len(chunks))
	for i, chunk := range chunks {
		var sb strings.Builder

		sb.WriteString("Document ")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(" (")
		sb.WriteString(chunk.Source())

		if chunk.Origin.Page > 0 {
			sb.WriteString(", page ")
			sb.WriteString(strconv.Itoa(chunk.Origin.Page))
		}

		sb.WriteString("):\n")
		sb.WriteString(chunk.Content)

		entries[i] = sb.String()
	}

	return strings.Join(entries, "\n\n")
}

func BuildPrompt(question string, chunks []domain.Chunk) string {
	return SystemInstruction +
		"\n\nContext:\n" + FormatContext(chunks) +
		"\n\nQuestion: " + question +
		"\n\nAnswer:"
}
