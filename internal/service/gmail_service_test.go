package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"study-assistant-be/pkg/gmail"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGmailService(sessions *gocache.Cache) IGmailService {
	flow := gmail.NewOAuthFlow("client-id", "client-secret", "http://localhost:8080/api/auth/gmail/v1/callback")
	return NewGmailService(flow, nil, sessions, nil, nil, 3600, noopLogger{})
}

func TestLoginURLRegistersState(t *testing.T) {
	sessions := gocache.New(time.Minute, time.Minute)
	svc := newTestGmailService(sessions)

	url := svc.LoginURL()

	assert.Contains(t, url, "accounts.google.com")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")

	// the state embedded in the URL must be registered for the callback
	require.Equal(t, 1, sessions.ItemCount())
	for key := range sessions.Items() {
		assert.True(t, strings.HasPrefix(key, "state:"))
	}
}

func TestHandleCallbackRejectsUnknownState(t *testing.T) {
	sessions := gocache.New(time.Minute, time.Minute)
	svc := newTestGmailService(sessions)

	_, err := svc.HandleCallback(context.Background(), "forged-state", "code")

	require.ErrorIs(t, err, ErrInvalidOAuthState)
}

func TestAuthenticatedAndLogout(t *testing.T) {
	sessions := gocache.New(time.Minute, time.Minute)
	svc := newTestGmailService(sessions)

	assert.False(t, svc.Authenticated(""))
	assert.False(t, svc.Authenticated("nope"))

	sessions.Set("creds:session-1", []byte("{}"), time.Minute)
	assert.True(t, svc.Authenticated("session-1"))

	svc.Logout("session-1")
	assert.False(t, svc.Authenticated("session-1"))
}

func TestGetEmailsRequiresAuthentication(t *testing.T) {
	sessions := gocache.New(time.Minute, time.Minute)
	svc := newTestGmailService(sessions)

	_, err := svc.GetEmails(context.Background(), "unknown-session", "recent", 5, false)

	require.ErrorIs(t, err, ErrNotAuthenticated)
}
