package grade

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays one canned reply (or error) per Chat call.
type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := p.calls
	p.calls++
	if i >= len(p.replies) {
		return "", errors.New("unexpected extra Chat call")
	}
	if p.errs != nil && p.errs[i] != nil {
		return "", p.errs[i]
	}
	return p.replies[i], nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func passages(ids ...string) []rag.Passage {
	out := make([]rag.Passage, len(ids))
	for i, id := range ids {
		out[i] = rag.Passage{ID: id, SourceID: "doc-" + id, Text: "text " + id, Rank: i}
	}
	return out
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Verdict
	}{
		{"plain yes", `{"binary_score": "yes"}`, VerdictRelevant},
		{"plain no", `{"binary_score": "no"}`, VerdictNotRelevant},
		{"uppercase yes", `{"binary_score": "YES"}`, VerdictRelevant},
		{"fenced json", "```json\n{\"binary_score\": \"yes\"}\n```", VerdictRelevant},
		{"bare fence", "```\n{\"binary_score\": \"no\"}\n```", VerdictNotRelevant},
		{"padded whitespace", "  {\"binary_score\": \" yes \"}  ", VerdictRelevant},
		{"unexpected value", `{"binary_score": "maybe"}`, VerdictMalformed},
		{"missing field", `{"score": "yes"}`, VerdictMalformed},
		{"prose answer", "The document seems relevant.", VerdictMalformed},
		{"empty output", "", VerdictMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVerdict(tt.raw))
		})
	}
}

func TestFilterEmptyInput(t *testing.T) {
	provider := &scriptedProvider{}
	grader := NewGrader(provider, testLogger())

	kept, err := grader.Filter(context.Background(), "question", nil)

	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Zero(t, provider.calls, "empty input must not reach the provider")
}

func TestFilterKeepsRelevantInOrder(t *testing.T) {
	provider := &scriptedProvider{
		replies: []string{
			`{"binary_score": "yes"}`,
			`{"binary_score": "no"}`,
			`{"binary_score": "yes"}`,
		},
	}
	grader := NewGrader(provider, testLogger())

	kept, err := grader.Filter(context.Background(), "question", passages("a", "b", "c"))

	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, "c", kept[1].ID)
}

func TestFilterDropsCandidateOnProviderError(t *testing.T) {
	provider := &scriptedProvider{
		replies: []string{`{"binary_score": "yes"}`, "", `{"binary_score": "yes"}`},
		errs:    []error{nil, errors.New("model unavailable"), nil},
	}
	grader := NewGrader(provider, testLogger())

	kept, err := grader.Filter(context.Background(), "question", passages("a", "b", "c"))

	require.NoError(t, err, "a single failed judgment is absorbed, not propagated")
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, "c", kept[1].ID)
}

func TestFilterDropsMalformedJudgment(t *testing.T) {
	provider := &scriptedProvider{
		replies: []string{"I think it is relevant", `{"binary_score": "yes"}`},
	}
	grader := NewGrader(provider, testLogger())

	kept, err := grader.Filter(context.Background(), "question", passages("a", "b"))

	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "b", kept[0].ID)
}

func TestFilterAbortsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{replies: []string{"", "", ""}}
	grader := NewGrader(provider, testLogger())

	_, err := grader.Filter(ctx, "question", passages("a", "b", "c"))

	require.ErrorIs(t, err, context.Canceled)
}
