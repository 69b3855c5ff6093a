package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// RetryingExtractor wraps a single-shot EventExtractor with bounded
// exponential backoff on rate-limit failures. Any other failure, and retry
// exhaustion, degrade to an empty result: downstream the pipeline treats a
// failed extraction as "no events found", never as a fatal error.
type RetryingExtractor struct {
	inner       EventExtractor
	maxAttempts int
	baseDelay   time.Duration
	// tick is the progress granularity during a backoff wait: one sleep and
	// one notification per tick. Tests shrink it to avoid real waits.
	tick  time.Duration
	sleep func(time.Duration)
}

// NewRetryingExtractor returns a controller with the default schedule:
// 3 attempts total, waiting 10s then 20s between them.
func NewRetryingExtractor(inner EventExtractor) *RetryingExtractor {
	return &RetryingExtractor{
		inner:       inner,
		maxAttempts: 3,
		baseDelay:   10 * time.Second,
		tick:        time.Second,
		sleep:       time.Sleep,
	}
}

// WithSchedule overrides the retry schedule. Used by tests.
func (r *RetryingExtractor) WithSchedule(maxAttempts int, baseDelay, tick time.Duration, sleep func(time.Duration)) *RetryingExtractor {
	r.maxAttempts = maxAttempts
	r.baseDelay = baseDelay
	r.tick = tick
	if sleep != nil {
		r.sleep = sleep
	}
	return r
}

// ExtractEvents runs one logical extraction. On success it returns the
// model's events and token usage. On rate limiting it waits out the backoff
// schedule, emitting one progress notification per elapsed tick so a caller
// can render a live countdown. Every terminal failure returns an empty event
// list and zero usage.
func (r *RetryingExtractor) ExtractEvents(ctx context.Context, email EmailContent, progress ProgressFunc) ([]ExtractedEvent, TokenUsage) {
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		events, usage, err := r.inner.ExtractEvents(ctx, email)
		if err == nil {
			return events, usage
		}

		if errors.Is(err, ErrMalformed) {
			log.Printf("[Extractor] Malformed response for %q: %v", email.Subject, err)
			return nil, TokenUsage{}
		}
		if !errors.Is(err, ErrRateLimited) {
			log.Printf("[Extractor] Extraction failed for %q: %v", email.Subject, err)
			return nil, TokenUsage{}
		}
		if attempt == r.maxAttempts {
			log.Printf("[Extractor] Rate limit retries exhausted for %q", email.Subject)
			return nil, TokenUsage{}
		}

		log.Printf("[Extractor] Rate limit hit, waiting %s before retry %d/%d", delay, attempt+1, r.maxAttempts)
		r.waitWithProgress(delay, attempt, progress)
		delay *= 2
	}

	return nil, TokenUsage{}
}

func (r *RetryingExtractor) waitWithProgress(delay time.Duration, attempt int, progress ProgressFunc) {
	ticks := int(delay / r.tick)
	for elapsed := 1; elapsed <= ticks; elapsed++ {
		r.sleep(r.tick)
		if progress != nil {
			remaining := ticks - elapsed
			progress("rate_limit", elapsed, ticks,
				fmt.Sprintf("[rate_limit] Rate limited, retrying in %ds (attempt %d/%d)", remaining, attempt+1, r.maxAttempts))
		}
	}
}
