package genai

import (
	"context"
	"math/rand"
	"time"

	"github.com/numa-app/numa-core/internal/fim"
)

// baseBackoff and jitterWindow follow the shape of the in-memory job queue's
// retry delay (time.Duration(retryCount) * time.Second), scaled down to the
// single retry spec §7 allows for a ProviderError on a reasoning call.
const (
	baseBackoff  = 400 * time.Millisecond
	jitterWindow = 300 * time.Millisecond
)

func jitteredDelay() time.Duration {
	return baseBackoff + time.Duration(rand.Int63n(int64(jitterWindow)))
}

// RetryingReasoner wraps a fim.Reasoner with exactly one retry on failure,
// after a jittered backoff, so a single transient provider hiccup does not
// surface to the user as domain.ErrProviderError.
type RetryingReasoner struct {
	inner fim.Reasoner
}

// NewRetryingReasoner wraps inner.
func NewRetryingReasoner(inner fim.Reasoner) *RetryingReasoner {
	return &RetryingReasoner{inner: inner}
}

// Complete implements fim.Reasoner.
func (r *RetryingReasoner) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := r.inner.Complete(ctx, prompt)
	if err == nil {
		return text, nil
	}

	select {
	case <-time.After(jitteredDelay()):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.inner.Complete(ctx, prompt)
}

// RetryingTranscriber wraps a fim.Transcriber with the same single-retry
// policy.
type RetryingTranscriber struct {
	inner fim.Transcriber
}

// NewRetryingTranscriber wraps inner.
func NewRetryingTranscriber(inner fim.Transcriber) *RetryingTranscriber {
	return &RetryingTranscriber{inner: inner}
}

// Transcribe implements fim.Transcriber.
func (r *RetryingTranscriber) Transcribe(ctx context.Context, audio []byte, mimeHint, language string) (string, error) {
	text, err := r.inner.Transcribe(ctx, audio, mimeHint, language)
	if err == nil {
		return text, nil
	}

	select {
	case <-time.After(jitteredDelay()):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.inner.Transcribe(ctx, audio, mimeHint, language)
}
