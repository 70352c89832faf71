package generate

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingProvider struct {
	reply      string
	gotHistory []llm.Message
	gotOptions llm.Options
}

func (p *capturingProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.gotHistory = history
	for _, opt := range options {
		opt(&p.gotOptions)
	}
	return p.reply, nil
}

func (p *capturingProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func TestGenerateBuildsGroundedHistory(t *testing.T) {
	provider := &capturingProvider{reply: "the answer"}
	gen := NewGenerator(provider, log.New(io.Discard, "", 0))

	passages := []rag.Passage{
		{ID: "p1", Text: "first chunk"},
		{ID: "p2", Text: "second chunk"},
	}
	transcript := []llm.Message{
		{Role: "user", Content: "prior question"},
		{Role: "assistant", Content: "prior answer"},
	}

	answer, err := gen.Generate(context.Background(), "current question", passages, transcript)

	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	require.Len(t, provider.gotHistory, 4)

	system := provider.gotHistory[0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, "first chunk\n\nsecond chunk", "passages are joined into one context block")

	assert.Equal(t, transcript[0], provider.gotHistory[1])
	assert.Equal(t, transcript[1], provider.gotHistory[2])
	assert.Equal(t, llm.Message{Role: "user", Content: "current question"}, provider.gotHistory[3])

	assert.Zero(t, provider.gotOptions.Temperature, "generation runs at temperature 0")
}

func TestGenerateReturnsModelOutputVerbatim(t *testing.T) {
	raw := "  an answer with leading spaces\nand a second line  "
	provider := &capturingProvider{reply: raw}
	gen := NewGenerator(provider, log.New(io.Discard, "", 0))

	answer, err := gen.Generate(context.Background(), "q", []rag.Passage{{Text: "chunk"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, raw, answer, "output is not trimmed or rewritten")
}

func TestGenerateWithEmptyTranscript(t *testing.T) {
	provider := &capturingProvider{reply: "answer"}
	gen := NewGenerator(provider, log.New(io.Discard, "", 0))

	_, err := gen.Generate(context.Background(), "q", []rag.Passage{{Text: "chunk"}}, nil)

	require.NoError(t, err)
	require.Len(t, provider.gotHistory, 2)
	assert.True(t, strings.HasPrefix(provider.gotHistory[0].Role, "system"))
	assert.Equal(t, "user", provider.gotHistory[1].Role)
}
