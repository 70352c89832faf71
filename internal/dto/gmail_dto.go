package dto

type EmailDTO struct {
	Subject     string `json:"subject"`
	Sender      string `json:"sender"`
	Date        string `json:"date"`
	Snippet     string `json:"snippet"`
	Content     string `json:"content"`
	FullContent string `json:"full_content"`
}

type GetEmailsResponse struct {
	FromCache bool       `json:"from_cache"`
	Count     int        `json:"count"`
	Emails    []EmailDTO `json:"emails"`
}

type SummarizeEmailsRequest struct {
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=recent weekly"`
	N    int    `json:"n,omitempty" validate:"omitempty,min=1,max=50"`
}

type SummarizeEmailsResponse struct {
	Summary string `json:"summary"`
	Count   int    `json:"count"`
}

type AuthStatusResponse struct {
	Authenticated bool `json:"authenticated"`
}
