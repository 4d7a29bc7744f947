// Package fetcher retrieves new messages from a mailbox. Two backends are
// provided: direct IMAP and the Gmail REST API.
package fetcher

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"secure-mail-digest-go/internal/model"
)

// Sentinel errors collaborators test with errors.Is. Connectivity failures are
// retryable on the next cycle; auth failures need operator attention.
var (
	ErrConnectivity = errors.New("mailbox unreachable")
	ErrAuth         = errors.New("mailbox authentication failed")
)

// Fetcher retrieves messages received after the given instant. The protocol
// search may be coarser than the instant (IMAP SINCE is date-granular), so
// callers must re-apply the exact bound.
type Fetcher interface {
	FetchSince(ctx context.Context, since time.Time) ([]model.EmailMessage, error)
	Close() error
}

var htmlTagRe = regexp.MustCompile(`<[^<]+?>`)

// htmlToText strips markup from an HTML body, used when a message carries no
// text/plain part.
func htmlToText(html string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(html, ""))
}
