package dto

type AskRequest struct {
	Question  string `json:"question" validate:"required"`
	SessionId string `json:"session_id,omitempty"`
}

type AskResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionId string   `json:"session_id"`
}

type TranscriptTurnDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GetTranscriptResponse struct {
	SessionId string              `json:"session_id"`
	Turns     []TranscriptTurnDTO `json:"turns"`
}
