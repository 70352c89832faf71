package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag"
)

const groundedSystemPrompt = `You are a teaching assistant. Answer the question using ONLY the reference context below.
If the context cannot answer the question, say you do not know. Do not use outside knowledge.

[Reference Context]:
%s`

// Generator produces a grounded answer from the surviving passages and the
// prior conversation. It assumes the caller already intercepted the
// empty-passages case; there is no special branch for it here.
type Generator struct {
	provider llm.Provider
	logger   *log.Logger
}

func NewGenerator(provider llm.Provider, logger *log.Logger) *Generator {
	return &Generator{
		provider: provider,
		logger:   logger,
	}
}

// Generate joins the passage texts into one context block, prepends it as a
// system instruction, replays the transcript in chronological order, appends
// the current question, and returns the model output verbatim. Temperature
// is pinned to 0 so identical input tends toward identical output.
func (g *Generator) Generate(ctx context.Context, query string, passages []rag.Passage, transcript []llm.Message) (string, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	contextBlock := strings.Join(texts, "\n\n")

	history := make([]llm.Message, 0, len(transcript)+2)
	history = append(history, llm.Message{
		Role:    "system",
		Content: fmt.Sprintf(groundedSystemPrompt, contextBlock),
	})
	history = append(history, transcript...)
	history = append(history, llm.Message{Role: "user", Content: query})

	answer, err := g.provider.Chat(ctx, history, llm.WithTemperature(0))
	if err != nil {
		return "", err
	}

	g.logger.Printf("[GENERATE] answered from %d passages, %d prior turns", len(passages), len(transcript))
	return answer, nil
}
