// Package notify emails an operator when upstream completion failures
// match a fixed set of error signatures. Notification is best-effort: a
// failed send is logged, never retried, never escalated.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// notifyTriggers are the lowercased substrings that make an upstream
// error worth an operator email.
var notifyTriggers = []string{
	"api error",
	"model not found",
	"404",
	"500",
	"503",
	"401",
}

// Notifier reports an upstream failure to the operator.
type Notifier interface {
	NotifyFailure(ctx context.Context, providerName string, failure error)
}

// ShouldNotify reports whether the error message matches one of the
// trigger signatures.
func ShouldNotify(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, trigger := range notifyTriggers {
		if strings.Contains(msg, trigger) {
			return true
		}
	}
	return false
}

// EmailNotifier sends via the Resend transactional email API.
type EmailNotifier struct {
	client *resend.Client
	from   string
	to     string
}

// NewEmailNotifier creates a notifier for the given Resend key and
// operator addresses.
func NewEmailNotifier(apiKey, from, to string) *EmailNotifier {
	return &EmailNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}

// NotifyFailure implements Notifier. Errors not matching the trigger
// set are ignored.
func (n *EmailNotifier) NotifyFailure(ctx context.Context, providerName string, failure error) {
	if !ShouldNotify(failure) {
		return
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: fmt.Sprintf("Completion proxy: %s failure", providerName),
		Text: fmt.Sprintf("Upstream provider %s failed at %s:\n\n%v\n",
			providerName, time.Now().UTC().Format(time.RFC3339), failure),
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		log.Printf("[NOTIFY] Email send failed: %v", err)
		return
	}
	log.Printf("[NOTIFY] Operator notified of %s failure", providerName)
}

// Nop is a Notifier that does nothing, used when email is unconfigured.
type Nop struct{}

// NotifyFailure implements Notifier.
func (Nop) NotifyFailure(context.Context, string, error) {}

var (
	_ Notifier = (*EmailNotifier)(nil)
	_ Notifier = Nop{}
)
