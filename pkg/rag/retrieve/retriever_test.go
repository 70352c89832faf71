package retrieve

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"study-assistant-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector  []float32
	err     error
	gotTask string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	f.gotTask = taskType
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeSearcher struct {
	passages []rag.Passage
	err      error
	gotK     int
}

func (f *fakeSearcher) SearchSimilar(ctx context.Context, vector []float32, k int) ([]rag.Passage, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRetrieveReturnsSearcherResults(t *testing.T) {
	searcher := &fakeSearcher{passages: []rag.Passage{
		{ID: "p1", Rank: 0},
		{ID: "p2", Rank: 1},
	}}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	r := NewRetriever(embedder, searcher, testLogger())

	got, err := r.Retrieve(context.Background(), "query", 3)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 3, searcher.gotK)
	assert.Equal(t, "RETRIEVAL_QUERY", embedder.gotTask)
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vector: []float32{1}}, &fakeSearcher{}, testLogger())

	got, err := r.Retrieve(context.Background(), "query", 3)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveWrapsEmbedderFailure(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("ollama down")}, &fakeSearcher{}, testLogger())

	_, err := r.Retrieve(context.Background(), "query", 3)

	require.ErrorIs(t, err, rag.ErrRetrievalUnavailable)
}

func TestRetrieveWrapsSearcherFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("pg connection refused")}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1}}, searcher, testLogger())

	_, err := r.Retrieve(context.Background(), "query", 3)

	require.ErrorIs(t, err, rag.ErrRetrievalUnavailable)
}

func TestRetrieveRejectsInvalidInput(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{}, testLogger())

	_, err := r.Retrieve(context.Background(), "", 3)
	require.Error(t, err)

	_, err = r.Retrieve(context.Background(), "query", 0)
	require.Error(t, err)
}
