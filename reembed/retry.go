package reembed

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying, e.g. a 400 from the embedding
// server. RetryWithBackoff returns the inner error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls op until it succeeds, returns a Permanent error,
// or has run maxAttempts times. The wait before the second call is
// baseDelay and doubles after that. The last error is returned.
func RetryWithBackoff(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	var err error
	for attempt, delay := 1, baseDelay; ; attempt, delay = attempt+1, delay*2 {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = op(); err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == maxAttempts {
			return err
		}

		slog.Debug("retrying embedding batch", "attempt", attempt, "of", maxAttempts, "wait", delay, "err", err)
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
