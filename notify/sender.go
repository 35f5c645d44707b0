/*
sender.go - Channel sender capability

PURPOSE:
  A Sender is the abstract external channel the Router fans out to.
  Transport and retry behavior live behind this interface; the engine only
  cares about success or failure within the caller-supplied timeout.

IMPLEMENTATIONS:
  - sms.Client:   Twilio-style message API (form-encoded POST)
  - email.Client: Postmark-style email API (JSON POST)
  - LogSender:    Logs instead of sending (dev mode, missing credentials)

SEE ALSO:
  - dispatch.go: Invokes senders with a bounded context
*/
package notify

import (
	"context"
	"errors"
	"log"
)

// ErrChannelSendFailed marks a per-channel delivery failure. Recorded in the
// reminder's channel results, never fatal to the sweep.
var ErrChannelSendFailed = errors.New("channel send failed")

// Sender delivers one message to one target. Implementations must honor
// context cancellation; the Router bounds every call with a timeout.
type Sender interface {
	Send(ctx context.Context, target, message string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, target, message string) error

func (f SenderFunc) Send(ctx context.Context, target, message string) error {
	return f(ctx, target, message)
}

// =============================================================================
// LOG SENDER - Development fallback
// =============================================================================

// LogSender logs messages instead of delivering them. Used when a channel's
// credentials are not configured.
type LogSender struct {
	Channel Channel
}

func (l *LogSender) Send(_ context.Context, target, message string) error {
	log.Printf("[%s] (log only) to %s: %s", l.Channel, target, message)
	return nil
}
