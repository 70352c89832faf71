package service

import (
	"context"
	"io"
	"log"
	"testing"

	"study-assistant-be/internal/dto"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag"
	"study-assistant-be/pkg/rag/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type stubRetriever struct{}

func (stubRetriever) Retrieve(ctx context.Context, query string, k int) ([]rag.Passage, error) {
	return []rag.Passage{{ID: "p1", SourceID: "doc-1", Text: "context", Rank: 0}}, nil
}

type stubGrader struct{}

func (stubGrader) Filter(ctx context.Context, query string, candidates []rag.Passage) ([]rag.Passage, error) {
	return candidates, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, query string, passages []rag.Passage, transcript []llm.Message) (string, error) {
	return "stub answer", nil
}

type recordingGenerator struct {
	answer     string
	gotHistory []llm.Message
}

func (g *recordingGenerator) Generate(ctx context.Context, query string, passages []rag.Passage, transcript []llm.Message) (string, error) {
	g.gotHistory = transcript
	return g.answer, nil
}

type memoryStore struct {
	turns map[string][]llm.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{turns: make(map[string][]llm.Message)}
}

func (m *memoryStore) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	return m.turns[sessionID], nil
}

func (m *memoryStore) Append(ctx context.Context, sessionID string, msg llm.Message) error {
	m.turns[sessionID] = append(m.turns[sessionID], msg)
	return nil
}

func newTestChatService(store *memoryStore) IChatService {
	wf := workflow.New(
		stubRetriever{},
		stubGrader{},
		stubGenerator{},
		store,
		3,
		log.New(io.Discard, "", 0),
	)
	return NewChatService(wf, store, noopLogger{})
}

func TestAskGeneratesSessionIdWhenMissing(t *testing.T) {
	svc := newTestChatService(newMemoryStore())

	res, err := svc.Ask(context.Background(), &dto.AskRequest{Question: "what is this?"})

	require.NoError(t, err)
	assert.Equal(t, "stub answer", res.Answer)
	_, parseErr := uuid.Parse(res.SessionId)
	assert.NoError(t, parseErr, "a fresh session id is minted and echoed back")
}

func TestAskKeepsProvidedSessionId(t *testing.T) {
	store := newMemoryStore()
	svc := newTestChatService(store)

	res, err := svc.Ask(context.Background(), &dto.AskRequest{
		Question:  "what is this?",
		SessionId: "my-session",
	})

	require.NoError(t, err)
	assert.Equal(t, "my-session", res.SessionId)
	assert.Len(t, store.turns["my-session"], 2)
}

func TestAskSecondTurnCarriesHistory(t *testing.T) {
	store := newMemoryStore()
	generator := &recordingGenerator{answer: "first answer"}
	wf := workflow.New(
		stubRetriever{},
		stubGrader{},
		generator,
		store,
		3,
		log.New(io.Discard, "", 0),
	)
	svc := NewChatService(wf, store, noopLogger{})

	_, err := svc.Ask(context.Background(), &dto.AskRequest{
		Question:  "first question",
		SessionId: "s1",
	})
	require.NoError(t, err)

	generator.answer = "second answer"
	_, err = svc.Ask(context.Background(), &dto.AskRequest{
		Question:  "second question",
		SessionId: "s1",
	})
	require.NoError(t, err)

	require.Len(t, generator.gotHistory, 2, "the follow-up is answered against the first exchange")
	assert.Equal(t, llm.Message{Role: "user", Content: "first question"}, generator.gotHistory[0])
	assert.Equal(t, llm.Message{Role: "assistant", Content: "first answer"}, generator.gotHistory[1])
	assert.Len(t, store.turns["s1"], 4)
}

func TestGetTranscript(t *testing.T) {
	store := newMemoryStore()
	svc := newTestChatService(store)

	_, err := svc.Ask(context.Background(), &dto.AskRequest{
		Question:  "first question",
		SessionId: "s1",
	})
	require.NoError(t, err)

	transcript, err := svc.GetTranscript(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, transcript.Turns, 2)
	assert.Equal(t, "user", transcript.Turns[0].Role)
	assert.Equal(t, "first question", transcript.Turns[0].Content)
	assert.Equal(t, "assistant", transcript.Turns[1].Role)
}
