// Package publisher provides run-completion event publishers.
package publisher

import "context"

// NoOp discards events. It is the default when Pub/Sub is not configured.
type NoOp struct{}

// Publish does nothing and returns an empty message id.
func (NoOp) Publish(_ context.Context, _ string, _ any) (string, error) {
	return "", nil
}
