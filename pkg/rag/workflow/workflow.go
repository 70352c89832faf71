package workflow

import (
	"context"
	"fmt"
	"log"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag"
)

// NoContextAnswer is the fixed reply when grading leaves no usable passage.
// It is a designed terminal outcome, not an error: the exchange still
// becomes part of the conversation history.
const NoContextAnswer = "I could not find any relevant information in the knowledge base to answer your question."

// Retriever pulls the top-k passages most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rag.Passage, error)
}

// Grader filters candidates down to the relevant subsequence.
type Grader interface {
	Filter(ctx context.Context, query string, candidates []rag.Passage) ([]rag.Passage, error)
}

// Generator produces the grounded answer.
type Generator interface {
	Generate(ctx context.Context, query string, passages []rag.Passage, transcript []llm.Message) (string, error)
}

// TranscriptStore owns per-session conversation history.
type TranscriptStore interface {
	Load(ctx context.Context, sessionID string) ([]llm.Message, error)
	Append(ctx context.Context, sessionID string, msg llm.Message) error
}

// Result is what a completed run hands back to the caller.
type Result struct {
	Answer  string
	Sources []string
}

// Workflow sequences the fixed retrieve -> grade -> generate pipeline over a
// per-run State. The node order is linear with no conditional edges and no
// retry loops; re-retrieval on an empty grade result is a deliberate
// non-feature of the baseline.
type Workflow struct {
	retriever   Retriever
	grader      Grader
	generator   Generator
	transcripts TranscriptStore
	topK        int
	logger      *log.Logger
}

func New(
	retriever Retriever,
	grader Grader,
	generator Generator,
	transcripts TranscriptStore,
	topK int,
	logger *log.Logger,
) *Workflow {
	if topK < 1 {
		topK = 3
	}
	return &Workflow{
		retriever:   retriever,
		grader:      grader,
		generator:   generator,
		transcripts: transcripts,
		topK:        topK,
		logger:      logger,
	}
}

// Answer runs one full pipeline pass for a question under a session.
//
// The transcript is appended to exactly twice, user turn before assistant
// turn, and only after an answer value exists. Retrieval or generation
// failures leave the transcript untouched so a user turn never appears
// without its assistant turn.
func (w *Workflow) Answer(ctx context.Context, question, sessionID string) (*Result, error) {
	if question == "" {
		return nil, fmt.Errorf("answer: empty question")
	}

	transcript, err := w.transcripts.Load(ctx, sessionID)
	if err != nil {
		// A missing history degrades the answer but does not block it.
		w.logger.Printf("[WARN] load transcript for session %s failed: %v", sessionID, err)
		transcript = []llm.Message{}
	}

	state := &rag.State{
		Question:   question,
		Transcript: transcript,
		Candidates: []rag.Passage{},
	}

	nodes := []func(context.Context, *rag.State) error{
		w.retrieveNode,
		w.gradeNode,
		w.generateNode,
	}
	for _, node := range nodes {
		if err := node(ctx, state); err != nil {
			return nil, err
		}
	}

	if err := w.transcripts.Append(ctx, sessionID, llm.Message{Role: "user", Content: question}); err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}
	if err := w.transcripts.Append(ctx, sessionID, llm.Message{Role: "assistant", Content: state.Answer}); err != nil {
		return nil, fmt.Errorf("persist assistant turn: %w", err)
	}

	return &Result{
		Answer:  state.Answer,
		Sources: state.SourceIDs(),
	}, nil
}

func (w *Workflow) retrieveNode(ctx context.Context, s *rag.State) error {
	candidates, err := w.retriever.Retrieve(ctx, s.Question, w.topK)
	if err != nil {
		return err
	}
	s.Candidates = candidates
	return nil
}

func (w *Workflow) gradeNode(ctx context.Context, s *rag.State) error {
	filtered, err := w.grader.Filter(ctx, s.Question, s.Candidates)
	if err != nil {
		return err
	}
	s.Candidates = filtered
	return nil
}

func (w *Workflow) generateNode(ctx context.Context, s *rag.State) error {
	if len(s.Candidates) == 0 {
		w.logger.Printf("[GENERATE] no candidates survived grading, returning fallback")
		s.Answer = NoContextAnswer
		return nil
	}

	answer, err := w.generator.Generate(ctx, s.Question, s.Candidates, s.Transcript)
	if err != nil {
		return fmt.Errorf("%w: %v", rag.ErrGenerationFailed, err)
	}
	s.Answer = answer
	return nil
}
