package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/gmail"
	"study-assistant-be/pkg/llm"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidOAuthState = errors.New("invalid oauth state")
	ErrNotAuthenticated  = errors.New("mailbox not authenticated")
)

const (
	oauthStateTTL     = 10 * time.Minute
	credentialTTL     = 24 * time.Hour
	statePrefix       = "state:"
	credsPrefix       = "creds:"
	summarySystemRole = "You are an email assistant. Summarize the emails below into a short digest. Group related emails, call out anything that needs action, and keep it under 200 words."
)

type IGmailService interface {
	LoginURL() string
	HandleCallback(ctx context.Context, state, code string) (string, error)
	Authenticated(sessionID string) bool
	Logout(sessionID string)
	GetEmails(ctx context.Context, sessionID, mode string, n int, useCache bool) (*dto.GetEmailsResponse, error)
	Summarize(ctx context.Context, sessionID, mode string, n int) (*dto.SummarizeEmailsResponse, error)
}

type gmailService struct {
	flow        *gmail.OAuthFlow
	fetcher     *gmail.Fetcher
	sessions    *gocache.Cache
	rdb         *redis.Client
	llmProvider llm.Provider
	cacheTTL    time.Duration
	log         logger.ILogger
}

func NewGmailService(
	flow *gmail.OAuthFlow,
	fetcher *gmail.Fetcher,
	sessions *gocache.Cache,
	rdb *redis.Client,
	llmProvider llm.Provider,
	cacheTTLSeconds int,
	log logger.ILogger,
) IGmailService {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 3600
	}
	return &gmailService{
		flow:        flow,
		fetcher:     fetcher,
		sessions:    sessions,
		rdb:         rdb,
		llmProvider: llmProvider,
		cacheTTL:    time.Duration(cacheTTLSeconds) * time.Second,
		log:         log,
	}
}

// LoginURL generates a one-time CSRF state and the matching consent URL.
func (s *gmailService) LoginURL() string {
	state := gmail.NewState()
	s.sessions.Set(statePrefix+state, true, oauthStateTTL)
	return s.flow.AuthURL(state)
}

// HandleCallback validates the state, exchanges the code, and stores the
// token server side under a fresh session id. The state is consumed either
// way so a replayed callback always fails.
func (s *gmailService) HandleCallback(ctx context.Context, state, code string) (string, error) {
	if _, found := s.sessions.Get(statePrefix + state); !found {
		return "", ErrInvalidOAuthState
	}
	s.sessions.Delete(statePrefix + state)

	token, err := s.flow.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	encoded, err := gmail.EncodeToken(token)
	if err != nil {
		return "", err
	}

	sessionID := uuid.New().String()
	s.sessions.Set(credsPrefix+sessionID, encoded, credentialTTL)

	s.log.Info("gmail", "mailbox session established", map[string]interface{}{"session_id": sessionID})
	return sessionID, nil
}

func (s *gmailService) Authenticated(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	_, found := s.sessions.Get(credsPrefix + sessionID)
	return found
}

func (s *gmailService) Logout(sessionID string) {
	s.sessions.Delete(credsPrefix + sessionID)
}

func (s *gmailService) GetEmails(ctx context.Context, sessionID, mode string, n int, useCache bool) (*dto.GetEmailsResponse, error) {
	if mode != gmail.ModeWeekly {
		mode = gmail.ModeRecent
	}
	if n < 1 {
		n = 5
	}

	cacheKey := fmt.Sprintf("gmail_emails_%s_%d", mode, n)

	if useCache {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var emails []dto.EmailDTO
			if err := json.Unmarshal([]byte(cached), &emails); err == nil {
				return &dto.GetEmailsResponse{
					FromCache: true,
					Count:     len(emails),
					Emails:    emails,
				}, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn("gmail", "email cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	fetched, err := s.fetchForSession(ctx, sessionID, mode, n)
	if err != nil {
		return nil, err
	}

	emails := make([]dto.EmailDTO, 0, len(fetched))
	for _, e := range gmail.Serialize(fetched) {
		emails = append(emails, dto.EmailDTO{
			Subject:     e.Subject,
			Sender:      e.Sender,
			Date:        e.Date,
			Snippet:     e.Snippet,
			Content:     e.Content,
			FullContent: e.FullContent,
		})
	}

	if useCache {
		payload, err := json.Marshal(emails)
		if err == nil {
			if err := s.rdb.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.log.Warn("gmail", "email cache write failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	return &dto.GetEmailsResponse{
		FromCache: false,
		Count:     len(emails),
		Emails:    emails,
	}, nil
}

// Summarize fetches the requested mailbox slice and asks the model for a
// digest. The cache is reused so summarizing right after listing does not
// hit Gmail twice.
func (s *gmailService) Summarize(ctx context.Context, sessionID, mode string, n int) (*dto.SummarizeEmailsResponse, error) {
	res, err := s.GetEmails(ctx, sessionID, mode, n, true)
	if err != nil {
		return nil, err
	}
	if res.Count == 0 {
		return &dto.SummarizeEmailsResponse{Summary: "No emails found for the requested period.", Count: 0}, nil
	}

	var b strings.Builder
	for i, e := range res.Emails {
		fmt.Fprintf(&b, "Email %d\nFrom: %s\nDate: %s\nSubject: %s\n%s\n\n", i+1, e.Sender, e.Date, e.Subject, e.FullContent)
	}

	history := []llm.Message{
		{Role: "system", Content: summarySystemRole},
		{Role: "user", Content: b.String()},
	}

	summary, err := s.llmProvider.Chat(ctx, history, llm.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("summarize emails: %w", err)
	}

	return &dto.SummarizeEmailsResponse{
		Summary: summary,
		Count:   res.Count,
	}, nil
}

func (s *gmailService) fetchForSession(ctx context.Context, sessionID, mode string, n int) ([]gmail.Email, error) {
	raw, found := s.sessions.Get(credsPrefix + sessionID)
	if !found {
		return nil, ErrNotAuthenticated
	}
	encoded, ok := raw.([]byte)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	token, err := gmail.DecodeToken(encoded)
	if err != nil {
		return nil, err
	}

	return s.fetcher.Fetch(ctx, token, mode, n)
}
