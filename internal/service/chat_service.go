package service

import (
	"context"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/rag/workflow"

	"github.com/google/uuid"
)

type IChatService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	GetTranscript(ctx context.Context, sessionID string) (*dto.GetTranscriptResponse, error)
}

type chatService struct {
	workflow    *workflow.Workflow
	transcripts workflow.TranscriptStore
	log         logger.ILogger
}

func NewChatService(wf *workflow.Workflow, transcripts workflow.TranscriptStore, log logger.ILogger) IChatService {
	return &chatService{
		workflow:    wf,
		transcripts: transcripts,
		log:         log,
	}
}

// Ask runs one pipeline pass. A missing session id starts a fresh
// conversation under a new id, which is echoed back so the client can
// continue it.
func (s *chatService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	result, err := s.workflow.Answer(ctx, req.Question, sessionID)
	if err != nil {
		s.log.Error("chat", "pipeline run failed", map[string]interface{}{
			"session_id": sessionID, "error": err.Error(),
		})
		return nil, err
	}

	s.log.Info("chat", "question answered", map[string]interface{}{
		"session_id": sessionID, "sources": len(result.Sources),
	})

	return &dto.AskResponse{
		Answer:    result.Answer,
		Sources:   result.Sources,
		SessionId: sessionID,
	}, nil
}

func (s *chatService) GetTranscript(ctx context.Context, sessionID string) (*dto.GetTranscriptResponse, error) {
	messages, err := s.transcripts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turns := make([]dto.TranscriptTurnDTO, len(messages))
	for i, m := range messages {
		turns[i] = dto.TranscriptTurnDTO{Role: m.Role, Content: m.Content}
	}

	return &dto.GetTranscriptResponse{
		SessionId: sessionID,
		Turns:     turns,
	}, nil
}
