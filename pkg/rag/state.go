package rag

import (
	"study-assistant-be/pkg/llm"
)

// Passage is one retrieved chunk of an indexed source document.
type Passage struct {
	ID       string
	SourceID string // originating document (upload filename or email id)
	Text     string
	Rank     int // position in the retrieval result, 0 = most similar
}

// State carries the mutable data of a single pipeline run. It is owned
// exclusively by that run; stages read and write its fields in turn.
//
// Candidates keep the retriever's descending-similarity order; the grading
// stage may drop elements but never reorders survivors. Transcript is loaded
// once at run start and the current exchange is appended to the store only
// after an answer (including the no-context fallback) has been produced.
type State struct {
	Question   string
	Transcript []llm.Message
	Candidates []Passage
	Answer     string
}

// SourceIDs returns the distinct source identifiers of the candidates,
// preserving first-seen order.
func (s *State) SourceIDs() []string {
	seen := make(map[string]bool, len(s.Candidates))
	out := make([]string, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if c.SourceID == "" || seen[c.SourceID] {
			continue
		}
		seen[c.SourceID] = true
		out = append(out, c.SourceID)
	}
	return out
}
