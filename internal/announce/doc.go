// Package announce keeps a stored announcement consistent across its
// delivery channels.
//
// An announcement is a declarative config (content plus a set of target
// channels). Each target tracks the provider-assigned id of the message last
// delivered to its channel. A reconciliation pass diffs the desired channel
// set against those records: existing messages are edited in place, missing
// ones are resent, removed ones are retired. Per-channel operations run
// concurrently and fail independently; whatever succeeded is persisted.
//
// The package owns no I/O of its own: persistence goes through Store and
// provider calls go through transport.Gateway.
package announce
