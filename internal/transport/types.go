package transport

import (
	"context"
	"errors"
)

// ErrNotFound reports that the channel or message no longer exists on the
// provider side. Callers treat it as an expected, recoverable condition:
// edits fall back to a fresh send, deletes count it as success.
var ErrNotFound = errors.New("transport: not found")

// Channel describes a delivery channel as known to the provider.
type Channel struct {
	ID    int64
	Title string
	Kind  string
}

// Button is a single link button attached to a message.
// Style is kept for the record; the provider renders every button as a URL
// button (see announce.Render).
type Button struct {
	Label string
	URL   string
	Style string
}

// MessageBody is a fully rendered message: HTML text plus an optional row of
// link buttons. It carries no provider-specific types so the core stays
// independent of the SDK.
type MessageBody struct {
	Text    string
	Buttons []Button

	// Preview enables the provider's link preview (used to surface an
	// announcement image on platforms without native embeds).
	Preview bool
}

// Gateway is the thin boundary to the chat SDK. Every call can fail
// independently; implementations must map provider "gone" conditions to
// ErrNotFound and must not retry on their own.
type Gateway interface {
	// FetchChannel resolves a channel within a scope. Returns ErrNotFound
	// when the channel does not exist or is not reachable by the bot.
	FetchChannel(ctx context.Context, scopeID, channelID int64) (*Channel, error)

	// SendMessage posts a new message and returns the provider-assigned id.
	SendMessage(ctx context.Context, channelID int64, body MessageBody) (int, error)

	// EditMessage updates a previously sent message in place. Returns
	// ErrNotFound when the message is gone. An edit that changes nothing is
	// success.
	EditMessage(ctx context.Context, channelID int64, messageID int, body MessageBody) error

	// DeleteMessage removes a message. Implementations map "already gone"
	// to ErrNotFound; callers treat that as success.
	DeleteMessage(ctx context.Context, channelID int64, messageID int) error
}
