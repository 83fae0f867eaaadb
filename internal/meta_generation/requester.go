package meta_generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/eternisai/meta-optimizer/internal/completion"
	"github.com/eternisai/meta-optimizer/internal/config"
	"github.com/eternisai/meta-optimizer/internal/logger"
)

const (
	successMessage   = "Here's your optimized output:"
	exhaustedMessage = "Rate limit exceeded. Please try again in a few minutes."
)

// AttemptObserver is told about every call made to the completion service.
type AttemptObserver interface {
	ObserveAttempt(rateLimited bool)
}

// Requester sends prompts to the completion service and retries rate-limited calls
// a bounded number of times with a fixed delay.
type Requester struct {
	completer   completion.Completer
	maxAttempts int
	retryDelay  time.Duration
	observer    AttemptObserver
	logger      *logger.Logger
}

// NewRequester builds a Requester from the rate-limit retry settings.
// observer may be nil.
func NewRequester(completer completion.Completer, cfg config.RateLimitRetryConfig, observer AttemptObserver, log *logger.Logger) *Requester {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = config.DefaultRateLimitAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = config.DefaultRateLimitRetryDelay
	}

	return &Requester{
		completer:   completer,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		observer:    observer,
		logger:      log.WithComponent("requester"),
	}
}

// Request sends prompt and returns the completion text.
//
// A rate-limited attempt is retried after the fixed delay while attempts remain,
// with a warning notice for each retry. When every attempt is rate limited the
// result is empty, Exhausted is set, one error notice is sent and the error is nil.
// Any other failure is returned as is.
func (r *Requester) Request(ctx context.Context, prompt string, notify Notifier) (CompletionResult, error) {
	log := r.logger.WithContext(ctx)
	backoff := retry.WithMaxRetries(uint64(r.maxAttempts-1), retry.NewConstant(r.retryDelay))

	var result CompletionResult
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++

		text, err := r.completer.Complete(ctx, prompt)
		rateLimited := completion.IsRateLimit(err)
		if r.observer != nil {
			r.observer.ObserveAttempt(rateLimited)
		}

		switch {
		case err == nil:
			result.Text = text
			return nil
		case rateLimited:
			log.Warn("completion rate limited",
				slog.Int("attempt", result.Attempts),
				slog.Int("max_attempts", r.maxAttempts))
			if result.Attempts < r.maxAttempts {
				notify.Notify(Notice{
					Level: NoticeWarning,
					Message: fmt.Sprintf("Rate limit hit. Retrying in %s... (attempt %d of %d)",
						r.retryDelay, result.Attempts, r.maxAttempts),
				})
			}
			return retry.RetryableError(err)
		default:
			return err
		}
	})

	switch {
	case err == nil:
		notify.Notify(Notice{Level: NoticeSuccess, Message: successMessage})
		return result, nil
	case completion.IsRateLimit(err):
		log.Error("completion rate limit retries exhausted", slog.Int("attempts", result.Attempts))
		notify.Notify(Notice{Level: NoticeError, Message: exhaustedMessage})
		return CompletionResult{Attempts: result.Attempts, Exhausted: true}, nil
	default:
		return CompletionResult{Attempts: result.Attempts}, err
	}
}
