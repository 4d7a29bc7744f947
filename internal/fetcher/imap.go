package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"secure-mail-digest-go/internal/config"
	"secure-mail-digest-go/internal/model"
)

// imapTimeout bounds every command on the IMAP session so a stalled server
// cannot wedge a poll cycle.
const imapTimeout = 30 * time.Second

// IMAPFetcher implements Fetcher over a persistent IMAP session. A dropped
// session is re-established on the next fetch instead of failing permanently.
type IMAPFetcher struct {
	cfg    config.MailboxConfig
	client *client.Client
}

// NewIMAPFetcher connects and logs in to the configured IMAP server.
func NewIMAPFetcher(cfg config.MailboxConfig) (*IMAPFetcher, error) {
	f := &IMAPFetcher{cfg: cfg}
	if err := f.connect(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *IMAPFetcher) connect() error {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", f.cfg.Host, f.cfg.Port), nil)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to IMAP server: %v", ErrConnectivity, err)
	}
	c.Timeout = imapTimeout

	if err := c.Login(f.cfg.Username, f.cfg.Password); err != nil {
		c.Logout()
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	f.client = c
	logrus.Infof("Connected to IMAP server %s as %s", f.cfg.Host, f.cfg.Username)
	return nil
}

// drop discards the current session so the next fetch reconnects.
func (f *IMAPFetcher) drop() {
	if f.client != nil {
		f.client.Logout()
		f.client = nil
	}
}

// FetchSince returns messages the server received on or after the given
// instant. IMAP SEARCH SINCE matches whole days, so the result may include
// messages older than the instant itself.
func (f *IMAPFetcher) FetchSince(ctx context.Context, since time.Time) ([]model.EmailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if f.client == nil {
		if err := f.connect(); err != nil {
			return nil, err
		}
	}

	// The pipeline never writes flags, so the folder is opened read-only.
	if _, err := f.client.Select(f.cfg.Folder, true); err != nil {
		f.drop()
		return nil, fmt.Errorf("%w: failed to select folder %s: %v", ErrConnectivity, f.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	uids, err := f.client.Search(criteria)
	if err != nil {
		f.drop()
		return nil, fmt.Errorf("%w: failed to search messages: %v", ErrConnectivity, err)
	}

	if len(uids) == 0 {
		return []model.EmailMessage{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- f.client.Fetch(seqset, items, messages)
	}()

	var emails []model.EmailMessage
	for msg := range messages {
		email, err := f.parseMessage(msg, section)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message uid=%d: %v", msg.Uid, err)
			continue
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		f.drop()
		return nil, fmt.Errorf("%w: failed to fetch messages: %v", ErrConnectivity, err)
	}

	return emails, nil
}

func (f *IMAPFetcher) parseMessage(msg *imap.Message, section *imap.BodySectionName) (model.EmailMessage, error) {
	email := model.EmailMessage{ReceivedAt: msg.InternalDate}

	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		email.ID = msg.Envelope.MessageId
		if len(msg.Envelope.From) > 0 {
			email.Sender = msg.Envelope.From[0].Address()
		}
		if !msg.Envelope.Date.IsZero() {
			email.ReceivedAt = msg.Envelope.Date
		}
	}
	if email.ID == "" {
		email.ID = fmt.Sprintf("%s-uid-%d", f.cfg.Folder, msg.Uid)
	}

	body, err := f.parseBody(msg, section)
	if err != nil {
		return email, err
	}
	email.Body = body

	return email, nil
}

// parseBody extracts a best-effort text body, preferring the first text/plain
// part and falling back to tag-stripped HTML.
func (f *IMAPFetcher) parseBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	r := msg.GetBody(section)
	if r == nil {
		return "", fmt.Errorf("message body section missing")
	}

	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("failed to read message: %w", err)
	}

	var plain, html string

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to read part: %w", err)
			}

			disposition := p.Header.Get("Content-Disposition")
			if strings.Contains(disposition, "attachment") {
				continue
			}

			contentType := p.Header.Get("Content-Type")
			switch {
			case strings.Contains(contentType, "text/plain") && plain == "":
				content, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read part body: %w", err)
				}
				plain = string(content)
			case strings.Contains(contentType, "text/html") && html == "":
				content, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read part body: %w", err)
				}
				html = string(content)
			}
		}
	} else {
		content, err := io.ReadAll(entity.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read message body: %w", err)
		}
		if strings.Contains(entity.Header.Get("Content-Type"), "text/html") {
			html = string(content)
		} else {
			plain = string(content)
		}
	}

	if plain != "" {
		return plain, nil
	}
	return htmlToText(html), nil
}

// Close logs out of the IMAP session.
func (f *IMAPFetcher) Close() error {
	if f.client == nil {
		return nil
	}
	err := f.client.Logout()
	f.client = nil
	return err
}
