package grade

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag"
)

// Verdict is the tagged result of one relevance judgment. The grading model
// is constrained to two literal tokens; anything else is a contract
// violation on its side and maps to VerdictMalformed.
type Verdict int

const (
	VerdictRelevant Verdict = iota
	VerdictNotRelevant
	VerdictMalformed
)

const gradeSystemPrompt = `You are a grader assessing whether a retrieved document is relevant to a user question.
If the document shares keywords or semantic meaning with the question, grade it as relevant.
This is not a strict test; the goal is to filter out clearly unrelated documents.
Respond with JSON only, in the exact form {"binary_score": "yes"} or {"binary_score": "no"}.`

// Grader asks the generation model for an independent yes/no relevance
// judgment per candidate. A judgment that errors or cannot be parsed drops
// the candidate: the filter biases toward precision over recall.
type Grader struct {
	provider llm.Provider
	logger   *log.Logger
}

func NewGrader(provider llm.Provider, logger *log.Logger) *Grader {
	return &Grader{
		provider: provider,
		logger:   logger,
	}
}

// Filter returns the subsequence of candidates judged relevant to the query,
// in their original order. An empty input returns immediately without any
// provider call.
func (g *Grader) Filter(ctx context.Context, query string, candidates []rag.Passage) ([]rag.Passage, error) {
	if len(candidates) == 0 {
		return []rag.Passage{}, nil
	}

	kept := make([]rag.Passage, 0, len(candidates))
	for _, candidate := range candidates {
		verdict, err := g.grade(ctx, query, candidate.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.Printf("[GRADE] candidate %s dropped: %v: %v", candidate.ID, rag.ErrGradingFailed, err)
			continue
		}

		switch verdict {
		case VerdictRelevant:
			kept = append(kept, candidate)
		case VerdictNotRelevant:
			g.logger.Printf("[GRADE] candidate %s judged not relevant", candidate.ID)
		case VerdictMalformed:
			g.logger.Printf("[GRADE] candidate %s dropped: %v: unparseable judgment", candidate.ID, rag.ErrGradingFailed)
		}
	}

	return kept, nil
}

func (g *Grader) grade(ctx context.Context, query, document string) (Verdict, error) {
	prompt := fmt.Sprintf("Retrieved document:\n\n%s\n\nUser question: %s", document, query)

	raw, err := g.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: gradeSystemPrompt},
		{Role: "user", Content: prompt},
	}, llm.WithTemperature(0))
	if err != nil {
		return VerdictMalformed, err
	}

	return ParseVerdict(raw), nil
}

// ParseVerdict interprets the grading model's raw output. It tolerates
// markdown code fences around the JSON but nothing looser than that.
func ParseVerdict(raw string) Verdict {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var judgment struct {
		BinaryScore string `json:"binary_score"`
	}
	if err := json.Unmarshal([]byte(cleaned), &judgment); err != nil {
		return VerdictMalformed
	}

	switch strings.ToLower(strings.TrimSpace(judgment.BinaryScore)) {
	case "yes":
		return VerdictRelevant
	case "no":
		return VerdictNotRelevant
	default:
		return VerdictMalformed
	}
}
