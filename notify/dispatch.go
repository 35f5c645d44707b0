/*
dispatch.go - Multi-channel reminder fan-out

PURPOSE:
  Given a pending reminder and the user's preferences, the Router invokes
  each enabled channel's Sender and merges the per-channel outcomes into
  one record.

ISOLATION:
  Channel attempts are independent: an SMS failure never prevents the email
  attempt, and both results land in ChannelResults. Every attempt runs under
  a bounded timeout; expiry counts as a channel failure, so a hung provider
  cannot stall the sweep.

MERGE:
  Both sends run concurrently; results are merged under a single lock after
  both complete, and the status is derived once:
    sent    at least one channel ok
    failed  all attempted channels failed, or nothing was attempted

SEE ALSO:
  - sender.go: The Sender capability
  - scheduler.go: Calls Dispatch during a sweep
*/
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultSendTimeout bounds one channel attempt.
const DefaultSendTimeout = 10 * time.Second

// =============================================================================
// ROUTER - Channel selection and fan-out
// =============================================================================

// Router fans a reminder out to the enabled channels.
type Router struct {
	Senders     map[Channel]Sender
	SendTimeout time.Duration
}

// NewRouter creates a router over the given channel senders.
func NewRouter(senders map[Channel]Sender) *Router {
	return &Router{
		Senders:     senders,
		SendTimeout: DefaultSendTimeout,
	}
}

type attempt struct {
	channel Channel
	target  string
	message string
}

// Dispatch attempts every enabled, targetable channel and returns the record
// with merged results and a terminal status. The input record is not
// mutated.
func (r *Router) Dispatch(ctx context.Context, rec ReminderRecord, pref Preference, contact Contact, daysUntilDue int) ReminderRecord {
	var attempts []attempt
	for _, ch := range pref.Channels() {
		target := contact.Phone
		if ch == ChannelEmail {
			target = contact.Email
		}
		if target == "" || r.Senders[ch] == nil {
			continue
		}
		attempts = append(attempts, attempt{
			channel: ch,
			target:  target,
			message: reminderMessage(ch, contact, daysUntilDue),
		})
	}

	results := make(map[Channel]ChannelResult, len(attempts))
	var mu sync.Mutex

	var g errgroup.Group
	for _, a := range attempts {
		a := a
		g.Go(func() error {
			res := r.attemptSend(ctx, a)

			mu.Lock()
			results[a.channel] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	rec.ChannelResults = results
	rec.Status = statusOf(results)
	return rec
}

// attemptSend runs one channel attempt under the router's timeout.
func (r *Router) attemptSend(ctx context.Context, a attempt) ChannelResult {
	timeout := r.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.Senders[a.channel].Send(ctx, a.target, a.message); err != nil {
		wrapped := fmt.Errorf("%w: %s: %v", ErrChannelSendFailed, a.channel, err)
		log.Printf("[Dispatch] %v", wrapped)
		return ChannelResult{OK: false, Error: err.Error()}
	}
	return ChannelResult{OK: true}
}

// statusOf derives the terminal status from the merged channel results.
func statusOf(results map[Channel]ChannelResult) ReminderStatus {
	for _, res := range results {
		if res.OK {
			return StatusSent
		}
	}
	// All attempted channels failed, or no channel was attempted at all.
	return StatusFailed
}
