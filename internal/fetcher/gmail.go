package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"secure-mail-digest-go/internal/config"
	"secure-mail-digest-go/internal/model"
)

// GmailAPIFetcher implements Fetcher using the Gmail REST API. Search covers
// the whole mailbox; folder selection is an IMAP concern.
type GmailAPIFetcher struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailAPIFetcher creates a Gmail API fetcher from OAuth2 refresh-token
// credentials.
func NewGmailAPIFetcher(cfg config.MailboxConfig) (*GmailAPIFetcher, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailAPIFetcher{
		service:   service,
		userEmail: cfg.UserEmail,
	}, nil
}

// FetchSince returns messages received after the given instant. Gmail's
// after: operator is second-granular, so the result may include messages from
// the boundary second itself.
func (f *GmailAPIFetcher) FetchSince(ctx context.Context, since time.Time) ([]model.EmailMessage, error) {
	query := fmt.Sprintf("after:%d", since.Unix())

	var emails []model.EmailMessage
	pageToken := ""
	for {
		call := f.service.Users.Messages.List(f.userEmail).Q(query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, wrapGmailError("failed to list messages", err)
		}

		for _, ref := range response.Messages {
			msg, err := f.service.Users.Messages.Get(f.userEmail, ref.Id).Format("full").Context(ctx).Do()
			if err != nil {
				logrus.Warnf("Failed to get message %s: %v", ref.Id, err)
				continue
			}

			email, err := f.parseMessage(msg)
			if err != nil {
				logrus.Warnf("Failed to parse message %s: %v", ref.Id, err)
				continue
			}
			emails = append(emails, email)
		}

		if response.NextPageToken == "" {
			break
		}
		pageToken = response.NextPageToken
	}

	return emails, nil
}

func wrapGmailError(msg string, err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok && (apiErr.Code == 401 || apiErr.Code == 403) {
		return fmt.Errorf("%w: %s: %v", ErrAuth, msg, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrConnectivity, msg, err)
}

func (f *GmailAPIFetcher) parseMessage(msg *gmail.Message) (model.EmailMessage, error) {
	email := model.EmailMessage{
		ID:         msg.Id,
		ReceivedAt: time.UnixMilli(msg.InternalDate),
	}

	if msg.Payload == nil {
		return email, fmt.Errorf("message %s has no payload", msg.Id)
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			email.Subject = header.Value
		case "From":
			if addr, err := mail.ParseAddress(header.Value); err == nil {
				email.Sender = addr.Address
			} else {
				email.Sender = header.Value
			}
		}
	}

	var plain, html string
	collectBodies(msg.Payload, &plain, &html)
	if plain != "" {
		email.Body = plain
	} else {
		email.Body = htmlToText(html)
	}

	return email, nil
}

// collectBodies walks the payload tree recording the first text/plain and
// first text/html bodies found.
func collectBodies(part *gmail.MessagePart, plain, html *string) {
	if part.Body != nil && part.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			switch part.MimeType {
			case "text/plain":
				if *plain == "" {
					*plain = string(data)
				}
			case "text/html":
				if *html == "" {
					*html = string(data)
				}
			}
		}
	}

	for _, subPart := range part.Parts {
		collectBodies(subPart, plain, html)
	}
}

// Close is a no-op; the Gmail service holds no persistent connection.
func (f *GmailAPIFetcher) Close() error {
	return nil
}
