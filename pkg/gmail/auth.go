package gmail

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ReadonlyScope limits the grant to reading mail. Nothing in the assistant
// sends or modifies messages, so nothing wider is ever requested.
const ReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// OAuthFlow drives the web-server OAuth2 flow against Google. Tokens are
// handed back to the caller for session storage; the flow itself keeps no
// per-user state.
type OAuthFlow struct {
	conf *oauth2.Config
}

func NewOAuthFlow(clientID, clientSecret, redirectURL string) *OAuthFlow {
	return &OAuthFlow{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{ReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}
}

// NewState returns a random URL-safe token for CSRF protection of the
// authorization redirect.
func NewState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// AuthURL builds the Google consent page URL. Offline access plus the
// consent prompt forces Google to hand out a refresh token even on repeat
// logins.
func (f *OAuthFlow) AuthURL(state string) string {
	return f.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades the callback authorization code for a token.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

// TokenSource wraps a stored token in a refreshing source. The oauth2
// package transparently refreshes expired tokens that carry a refresh token.
func (f *OAuthFlow) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return f.conf.TokenSource(ctx, token)
}

type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// EncodeToken serializes a token for session storage.
func EncodeToken(token *oauth2.Token) ([]byte, error) {
	return json.Marshal(storedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	})
}

// DecodeToken restores a token previously produced by EncodeToken.
func DecodeToken(data []byte) (*oauth2.Token, error) {
	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}, nil
}
