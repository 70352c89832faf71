package workflow

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

type fakeRetriever struct {
	passages []rag.Passage
	err      error
	gotK     int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]rag.Passage, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

type fakeGrader struct {
	keep func([]rag.Passage) []rag.Passage
}

func (f *fakeGrader) Filter(ctx context.Context, query string, candidates []rag.Passage) ([]rag.Passage, error) {
	if f.keep == nil {
		return candidates, nil
	}
	return f.keep(candidates), nil
}

type fakeGenerator struct {
	answer      string
	err         error
	called      bool
	gotPassages []rag.Passage
	gotHistory  []llm.Message
}

func (f *fakeGenerator) Generate(ctx context.Context, query string, passages []rag.Passage, transcript []llm.Message) (string, error) {
	f.called = true
	f.gotPassages = passages
	f.gotHistory = transcript
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeStore struct {
	transcript []llm.Message
	loadErr    error
	appendErr  error
	appended   []llm.Message
}

func (f *fakeStore) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.transcript, nil
}

func (f *fakeStore) Append(ctx context.Context, sessionID string, msg llm.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, msg)
	return nil
}

// sessionStore keeps real per-session state so consecutive runs observe
// each other's appends.
type sessionStore struct {
	turns map[string][]llm.Message
}

func newSessionStore() *sessionStore {
	return &sessionStore{turns: make(map[string][]llm.Message)}
}

func (s *sessionStore) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	return s.turns[sessionID], nil
}

func (s *sessionStore) Append(ctx context.Context, sessionID string, msg llm.Message) error {
	s.turns[sessionID] = append(s.turns[sessionID], msg)
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func threePassages() []rag.Passage {
	return []rag.Passage{
		{ID: "p1", SourceID: "doc-1", Text: "alpha", Rank: 0},
		{ID: "p2", SourceID: "doc-2", Text: "beta", Rank: 1},
		{ID: "p3", SourceID: "doc-1", Text: "gamma", Rank: 2},
	}
}

func TestAnswerHappyPath(t *testing.T) {
	retriever := &fakeRetriever{passages: threePassages()}
	grader := &fakeGrader{keep: func(in []rag.Passage) []rag.Passage {
		// drop the middle candidate, keep original order
		return []rag.Passage{in[0], in[2]}
	}}
	generator := &fakeGenerator{answer: "grounded answer"}
	store := &fakeStore{transcript: []llm.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}}

	wf := New(retriever, grader, generator, store, 3, testLogger())
	result, err := wf.Answer(context.Background(), "what is alpha?", "session-1")

	require.NoError(t, err)
	assert.Equal(t, "grounded answer", result.Answer)
	assert.Equal(t, []string{"doc-1"}, result.Sources, "both survivors come from doc-1")
	assert.Equal(t, 3, retriever.gotK)

	require.True(t, generator.called)
	require.Len(t, generator.gotPassages, 2)
	assert.Equal(t, "p1", generator.gotPassages[0].ID)
	assert.Equal(t, "p3", generator.gotPassages[1].ID)
	assert.Len(t, generator.gotHistory, 2, "prior transcript is handed to generation")

	require.Len(t, store.appended, 2, "exactly two turns are persisted")
	assert.Equal(t, llm.Message{Role: "user", Content: "what is alpha?"}, store.appended[0])
	assert.Equal(t, llm.Message{Role: "assistant", Content: "grounded answer"}, store.appended[1])
}

func TestAnswerNoRelevantContext(t *testing.T) {
	retriever := &fakeRetriever{passages: threePassages()}
	grader := &fakeGrader{keep: func([]rag.Passage) []rag.Passage {
		return []rag.Passage{}
	}}
	generator := &fakeGenerator{answer: "must not be used"}
	store := &fakeStore{}

	wf := New(retriever, grader, generator, store, 3, testLogger())
	result, err := wf.Answer(context.Background(), "unrelated question", "session-1")

	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.False(t, generator.called, "generation is skipped when nothing survives grading")

	require.Len(t, store.appended, 2, "the fallback outcome still becomes history")
	assert.Equal(t, "user", store.appended[0].Role)
	assert.Equal(t, NoContextAnswer, store.appended[1].Content)
}

func TestAnswerSecondRunSeesFirstExchange(t *testing.T) {
	retriever := &fakeRetriever{passages: threePassages()}
	generator := &fakeGenerator{answer: "first answer"}
	store := newSessionStore()

	wf := New(retriever, &fakeGrader{}, generator, store, 3, testLogger())

	_, err := wf.Answer(context.Background(), "first question", "session-1")
	require.NoError(t, err)
	assert.Empty(t, generator.gotHistory, "a fresh session starts with no history")

	generator.answer = "second answer"
	_, err = wf.Answer(context.Background(), "second question", "session-1")
	require.NoError(t, err)

	require.Len(t, generator.gotHistory, 2, "the second run is generated against the first exchange")
	assert.Equal(t, llm.Message{Role: "user", Content: "first question"}, generator.gotHistory[0])
	assert.Equal(t, llm.Message{Role: "assistant", Content: "first answer"}, generator.gotHistory[1])

	require.Len(t, store.turns["session-1"], 4)
	assert.Equal(t, "second question", store.turns["session-1"][2].Content)
	assert.Equal(t, "second answer", store.turns["session-1"][3].Content)
}

func TestAnswerRetrievalUnavailable(t *testing.T) {
	retriever := &fakeRetriever{err: rag.ErrRetrievalUnavailable}
	generator := &fakeGenerator{}
	store := &fakeStore{}

	wf := New(retriever, &fakeGrader{}, generator, store, 3, testLogger())
	_, err := wf.Answer(context.Background(), "question", "session-1")

	require.ErrorIs(t, err, rag.ErrRetrievalUnavailable)
	assert.False(t, generator.called)
	assert.Empty(t, store.appended, "a failed run must not leave a partial exchange")
}

func TestAnswerGenerationFailed(t *testing.T) {
	retriever := &fakeRetriever{passages: threePassages()}
	generator := &fakeGenerator{err: errors.New("model timeout")}
	store := &fakeStore{}

	wf := New(retriever, &fakeGrader{}, generator, store, 3, testLogger())
	_, err := wf.Answer(context.Background(), "question", "session-1")

	require.ErrorIs(t, err, rag.ErrGenerationFailed)
	assert.Empty(t, store.appended, "a failed run must not leave a partial exchange")
}

func TestAnswerEmptyQuestion(t *testing.T) {
	wf := New(&fakeRetriever{}, &fakeGrader{}, &fakeGenerator{}, &fakeStore{}, 3, testLogger())

	_, err := wf.Answer(context.Background(), "", "session-1")

	require.Error(t, err)
}

func TestAnswerProceedsWhenHistoryLoadFails(t *testing.T) {
	retriever := &fakeRetriever{passages: threePassages()}
	generator := &fakeGenerator{answer: "answer"}
	store := &fakeStore{loadErr: errors.New("redis down")}

	wf := New(retriever, &fakeGrader{}, generator, store, 3, testLogger())
	result, err := wf.Answer(context.Background(), "question", "session-1")

	require.NoError(t, err, "an unreadable history degrades the run, it does not block it")
	assert.Equal(t, "answer", result.Answer)
	assert.Empty(t, generator.gotHistory)
}

func TestAnswerDefaultTopK(t *testing.T) {
	retriever := &fakeRetriever{passages: nil}
	wf := New(retriever, &fakeGrader{}, &fakeGenerator{}, &fakeStore{}, 0, testLogger())

	_, err := wf.Answer(context.Background(), "question", "session-1")

	require.NoError(t, err)
	assert.Equal(t, 3, retriever.gotK)
}
