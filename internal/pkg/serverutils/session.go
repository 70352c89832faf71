package serverutils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName carries the signed mailbox session id.
const SessionCookieName = "assistant_session"

var ErrNoSession = errors.New("no active session")

// IssueSessionCookie signs a session id into a JWT and sets it as an
// HTTP-only cookie. The id is an opaque key into the server-side credential
// cache; the cookie never carries the OAuth token itself.
func IssueSessionCookie(ctx *fiber.Ctx, secret string, sessionID string, ttl time.Duration) error {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return err
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return nil
}

// SessionIDFromCookie verifies the session cookie and returns the session id.
func SessionIDFromCookie(ctx *fiber.Ctx, secret string) (string, error) {
	raw := ctx.Cookies(SessionCookieName)
	if raw == "" {
		return "", ErrNoSession
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrNoSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrNoSession
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", ErrNoSession
	}
	return sid, nil
}

// ClearSessionCookie drops the session cookie.
func ClearSessionCookie(ctx *fiber.Ctx) {
	ctx.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
