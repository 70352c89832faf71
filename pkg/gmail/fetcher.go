package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	ModeRecent = "recent"
	ModeWeekly = "weekly"
)

// Email is one fetched message with its parsed headers and extracted body.
type Email struct {
	ID      string
	Subject string
	Sender  string
	Date    string
	Snippet string
	Body    string
}

// SerializedEmail is the API-facing shape. Content carries a short preview
// so list responses stay small; FullContent keeps the whole body for
// summarization.
type SerializedEmail struct {
	Subject     string `json:"subject"`
	Sender      string `json:"sender"`
	Date        string `json:"date"`
	Snippet     string `json:"snippet"`
	Content     string `json:"content"`
	FullContent string `json:"full_content"`
}

const previewLen = 200

// Fetcher pulls messages for one authenticated mailbox.
type Fetcher struct {
	flow   *OAuthFlow
	logger *log.Logger
	now    func() time.Time
}

func NewFetcher(flow *OAuthFlow, logger *log.Logger) *Fetcher {
	return &Fetcher{
		flow:   flow,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch lists messages matching the mode and resolves each to a full Email.
// ModeRecent takes the n newest inbox messages; ModeWeekly restricts the
// search to the past seven days. A message that fails to resolve is skipped,
// not fatal.
func (f *Fetcher) Fetch(ctx context.Context, token *oauth2.Token, mode string, n int) ([]Email, error) {
	if n < 1 {
		n = 5
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(f.flow.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}

	query := "in:inbox"
	if mode == ModeWeekly {
		query = f.weeklyQuery()
	}
	f.logger.Printf("[GMAIL] listing messages, mode=%s query=%q limit=%d", mode, query, n)

	list, err := svc.Users.Messages.List("me").Q(query).MaxResults(int64(n)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	refs := list.Messages
	if len(refs) == 0 {
		// Some mailboxes route everything past the inbox. Retry without
		// the query before declaring the mailbox empty.
		list, err = svc.Users.Messages.List("me").MaxResults(int64(n)).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		refs = list.Messages
	}

	emails := make([]Email, 0, len(refs))
	for _, ref := range refs {
		msg, err := svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			f.logger.Printf("[GMAIL] skipping message %s: %v", ref.Id, err)
			continue
		}
		emails = append(emails, parseMessage(msg))
	}

	f.logger.Printf("[GMAIL] fetched %d of %d messages", len(emails), len(refs))
	return emails, nil
}

// weeklyQuery builds the inbox search for the past seven days. Gmail expects
// dates as YYYY/MM/DD.
func (f *Fetcher) weeklyQuery() string {
	sevenDaysAgo := f.now().AddDate(0, 0, -7)
	return "in:inbox after:" + sevenDaysAgo.Format("2006/01/02")
}

func parseMessage(msg *gmailapi.Message) Email {
	email := Email{
		ID:      msg.Id,
		Subject: "(no subject)",
		Sender:  "(unknown)",
		Date:    "(unknown)",
		Snippet: msg.Snippet,
	}
	if msg.Payload == nil {
		return email
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			email.Subject = h.Value
		case "From":
			email.Sender = h.Value
		case "Date":
			email.Date = h.Value
		}
	}
	email.Body = extractBody(msg.Payload)
	return email
}

// extractBody pulls the message text out of the MIME payload. Multipart
// messages prefer a text/plain part; a text/html part is the fallback and
// gets its tags stripped. Single-part messages are handled the same way.
func extractBody(payload *gmailapi.MessagePart) string {
	if len(payload.Parts) > 0 {
		var htmlBody string
		for _, part := range payload.Parts {
			data := partData(part)
			if data == "" {
				continue
			}
			switch part.MimeType {
			case "text/plain":
				return strings.TrimSpace(data)
			case "text/html":
				if htmlBody == "" {
					htmlBody = data
				}
			}
		}
		return strings.TrimSpace(stripHTML(htmlBody))
	}

	data := partData(payload)
	if data == "" {
		return ""
	}
	if payload.MimeType == "text/html" {
		return strings.TrimSpace(stripHTML(data))
	}
	if payload.MimeType == "text/plain" {
		return strings.TrimSpace(data)
	}
	return ""
}

func partData(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(part.Body.Data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

// stripHTML reduces an HTML document to its visible text.
func stripHTML(doc string) string {
	if doc == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

// Serialize converts fetched emails to their API shape, truncating the body
// preview at 200 characters.
func Serialize(emails []Email) []SerializedEmail {
	out := make([]SerializedEmail, 0, len(emails))
	for _, e := range emails {
		preview := e.Body
		if len([]rune(preview)) > previewLen {
			preview = string([]rune(preview)[:previewLen]) + "..."
		}
		out = append(out, SerializedEmail{
			Subject:     e.Subject,
			Sender:      e.Sender,
			Date:        e.Date,
			Snippet:     e.Snippet,
			Content:     preview,
			FullContent: e.Body,
		})
	}
	return out
}
