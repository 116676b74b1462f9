package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

type fakeModels struct {
	embedCalls []*genai.EmbedContentConfig
	batchSizes []int
	prompts    []string
	reply      string
	err        error
}

func (m *fakeModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}

	m.embedCalls = append(m.embedCalls, config)
	m.batchSizes = append(m.batchSizes, len(contents))

	resp := &genai.EmbedContentResponse{}
	for i := range contents {
		values := make([]float32, *config.OutputDimensionality)
		values[0] = float32(i)

		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: values})
	}

	return resp, nil
}

func (m *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}

	m.prompts = append(m.prompts, contents[0].Parts[0].Text)

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: genai.NewContentFromText(m.reply, genai.RoleModel),
			},
		},
	}, nil
}

func TestEmbedBatch(t *testing.T) {
	assert := assert.New(t)

	fake := &fakeModels{}
	client := newClient(fake, Config{})

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "chunk"
	}

	vectors, err := client.EmbedBatch(context.Background(), texts)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Len(vectors, 250)
	assert.Len(vectors[0], DefaultDimension)
	assert.Equal([]int{100, 100, 50}, fake.batchSizes)
	assert.Equal(float32(1), vectors[101][0])

	for _, config := range fake.embedCalls {
		assert.Equal(taskRetrievalDocument, config.TaskType)
		assert.Equal(int32(768), *config.OutputDimensionality)
	}
}

func TestEmbedQuery(t *testing.T) {
	assert := assert.New(t)

	fake := &fakeModels{}
	client := newClient(fake, Config{Dimension: 16})

	vec, err := client.Embed(context.Background(), "what color is the sky?")
	assert.NoError(err)
	assert.Len(vec, 16)
	assert.Equal(16, client.Dimension())

	if assert.Len(fake.embedCalls, 1) {
		assert.Equal(taskRetrievalQuery, fake.embedCalls[0].TaskType)
	}
}

func TestGenerate(t *testing.T) {
	assert := assert.New(t)

	fake := &fakeModels{reply: "The sky is blue."}
	client := newClient(fake, Config{})

	reply, err := client.Generate(context.Background(), "Question: what color is the sky?")
	assert.NoError(err)
	assert.Equal("The sky is blue.", reply)
	assert.Equal([]string{"Question: what color is the sky?"}, fake.prompts)

	fake.reply = ""
	_, err = client.Generate(context.Background(), "anything")
	assert.ErrorIs(err, ErrEmptyResponse)
}

func TestUpstreamError(t *testing.T) {
	assert := assert.New(t)

	boom := errors.New("quota exceeded")
	client := newClient(&fakeModels{err: boom}, Config{})

	_, err := client.Embed(context.Background(), "q")
	assert.ErrorIs(err, boom)

	_, err = client.Generate(context.Background(), "q")
	assert.ErrorIs(err, boom)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}
