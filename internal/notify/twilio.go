package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"secure-mail-digest-go/internal/config"
)

// WhatsApp delivery limits mirror Twilio's plain-message and template
// variable size caps.
const (
	maxBodyChars    = 1500
	maxSubjectChars = 500
	maxSummaryChars = 1000
)

// Twilio sends digests as WhatsApp messages. When a content template SID is
// configured, messages go through the template with subject and summary as
// variables; otherwise the plain text body is sent directly.
type Twilio struct {
	client     *twilio.RestClient
	from       string
	to         string
	contentSid string
}

// NewTwilio creates the WhatsApp notifier from account credentials.
func NewTwilio(cfg config.NotifierConfig) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Twilio{
		client:     client,
		from:       cfg.WhatsAppFrom,
		to:         "whatsapp:" + cfg.RecipientNumber,
		contentSid: cfg.ContentSid,
	}
}

// Send delivers one message, retrying rate-limited attempts with a growing
// pause. Failures after the final attempt wrap ErrDelivery.
func (t *Twilio) Send(ctx context.Context, msg Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		sid, err := t.sendOnce(msg)
		if err == nil {
			return sid, nil
		}

		lastErr = err
		logrus.Warnf("Failed to send notification (attempt %d/%d): %v", attempt, 3, err)

		if !isRateError(err) {
			break
		}
		waitTime := time.Duration(attempt*attempt) * time.Second
		logrus.Infof("Rate limited, waiting %v before retry", waitTime)
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrDelivery, ctx.Err())
		}
	}

	return "", fmt.Errorf("%w: %v", ErrDelivery, lastErr)
}

func (t *Twilio) sendOnce(msg Message) (string, error) {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(t.to)

	if t.contentSid != "" {
		variables, err := json.Marshal(map[string]string{
			"1": truncateRunes(msg.Subject, maxSubjectChars),
			"2": truncateRunes(msg.Summary, maxSummaryChars),
		})
		if err != nil {
			return "", fmt.Errorf("failed to encode template variables: %w", err)
		}
		params.SetContentSid(t.contentSid)
		params.SetContentVariables(string(variables))
	} else {
		params.SetBody(truncateRunes(msg.Text, maxBodyChars))
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

func isRateError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate") || strings.Contains(msg, "429")
}
