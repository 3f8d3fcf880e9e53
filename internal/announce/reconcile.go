package announce

import (
	"context"
	"errors"
	"sync"

	kit "annobot/internal/transport"
	logx "annobot/pkg/logx"
)

// Status of one channel after a reconciliation pass.
type Status string

const (
	StatusSent   Status = "sent"
	StatusEdited Status = "edited"
	StatusFailed Status = "failed"
)

// Outcome is the result of exactly one channel attempt. MessageID is the id
// to persist for the channel: the new id after a send, the unchanged id after
// an edit, the stale id after a failed edit, nil after a failed send.
type Outcome struct {
	ChannelID int64
	Status    Status
	MessageID *int
	Err       error
}

// Result aggregates one pass. PerChannel preserves the desired-list order.
type Result struct {
	Attempted  int
	PerChannel []Outcome
}

// FirstSuccess returns the message id of the first delivered channel, in
// desired-list order, or nil when every channel failed.
func (r Result) FirstSuccess() *int {
	for _, oc := range r.PerChannel {
		if oc.Status != StatusFailed && oc.MessageID != nil {
			return oc.MessageID
		}
	}
	return nil
}

// Failed returns the outcomes of channels that did not deliver.
func (r Result) Failed() []Outcome {
	var out []Outcome
	for _, oc := range r.PerChannel {
		if oc.Status == StatusFailed {
			out = append(out, oc)
		}
	}
	return out
}

// Reconciler runs the per-pass diff between the desired channel set and the
// recorded publication state. It holds no state across passes and never
// retries; a failed channel waits for the caller to re-issue the operation.
type Reconciler struct {
	gw  kit.Gateway
	log logx.Logger
}

func NewReconciler(gw kit.Gateway, log logx.Logger) *Reconciler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reconciler{gw: gw, log: log}
}

// Publish attempts every desired target exactly once, concurrently, and
// waits for all outcomes. A target with a recorded id is edited in place,
// falling back to a fresh send when the message is gone; a target without
// one is sent fresh. One channel's failure never aborts a sibling.
func (r *Reconciler) Publish(ctx context.Context, desired []Target, body kit.MessageBody) Result {
	out := make([]Outcome, len(desired))
	var wg sync.WaitGroup
	for i, t := range desired {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			out[i] = r.publishOne(ctx, t, body)
		}(i, t)
	}
	wg.Wait()
	return Result{Attempted: len(desired), PerChannel: out}
}

func (r *Reconciler) publishOne(ctx context.Context, t Target, body kit.MessageBody) Outcome {
	if t.MessageID != nil {
		err := r.gw.EditMessage(ctx, t.ChannelID, *t.MessageID, body)
		switch {
		case err == nil:
			return Outcome{ChannelID: t.ChannelID, Status: StatusEdited, MessageID: t.MessageID}
		case errors.Is(err, kit.ErrNotFound):
			// Externally deleted; abandon the stale reference and resend.
			r.log.Debug("message gone, resending",
				logx.Int64("channel_id", t.ChannelID), logx.Int("message_id", *t.MessageID))
		default:
			// Keep the stale id so a re-issued pass retries the edit.
			r.log.Warn("edit failed",
				logx.Int64("channel_id", t.ChannelID), logx.Err(err))
			return Outcome{ChannelID: t.ChannelID, Status: StatusFailed, MessageID: t.MessageID, Err: err}
		}
	}
	return r.sendFresh(ctx, t, body)
}

func (r *Reconciler) sendFresh(ctx context.Context, t Target, body kit.MessageBody) Outcome {
	if _, err := r.gw.FetchChannel(ctx, t.ScopeID, t.ChannelID); err != nil {
		r.log.Warn("channel unavailable",
			logx.Int64("channel_id", t.ChannelID), logx.Err(err))
		return Outcome{ChannelID: t.ChannelID, Status: StatusFailed, Err: err}
	}
	id, err := r.gw.SendMessage(ctx, t.ChannelID, body)
	if err != nil {
		r.log.Warn("send failed",
			logx.Int64("channel_id", t.ChannelID), logx.Err(err))
		return Outcome{ChannelID: t.ChannelID, Status: StatusFailed, Err: err}
	}
	return Outcome{ChannelID: t.ChannelID, Status: StatusSent, MessageID: &id}
}

// Retire best-effort deletes the published messages of targets leaving the
// desired set. "Already gone" counts as success; other failures are logged
// and dropped, the rows are removed by the caller either way.
func (r *Reconciler) Retire(ctx context.Context, stale []Target) {
	var wg sync.WaitGroup
	for _, t := range stale {
		if t.MessageID == nil {
			continue
		}
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			err := r.gw.DeleteMessage(ctx, t.ChannelID, *t.MessageID)
			if err != nil && !errors.Is(err, kit.ErrNotFound) {
				r.log.Warn("retire delete failed",
					logx.Int64("channel_id", t.ChannelID), logx.Int("message_id", *t.MessageID), logx.Err(err))
			}
		}(t)
	}
	wg.Wait()
}
