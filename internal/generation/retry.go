package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nutcracker-app/nutcracker/internal/metrics"
)

const (
	maxGenerateAttempts = 3
	initialBackoff      = 2 * time.Second
	maxBackoff          = 10 * time.Second
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// generateWithRetry drives the image call through its two independent retry
// axes. A safety rejection softens the style to illustration exactly once and
// resets the transient budget; a second safety rejection surfaces as a content
// policy error. Transient failures back off exponentially within a budget of
// maxGenerateAttempts calls per style. Anything else surfaces immediately.
func (o *Orchestrator) generateWithRetry(ctx context.Context, animalID, enhanced, style string) (*Asset, string, error) {
	attempts := 0
	backoff := initialBackoff

	for {
		asset, err := o.generator.GenerateAsset(ctx, composePrompt(animalID, enhanced, style))
		if err == nil {
			return asset, style, nil
		}
		attempts++

		switch classifyError(err) {
		case classSafety:
			if style == StyleIllustration {
				return nil, style, &ContentPolicyError{
					Message: "the prompt was rejected by the content safety system",
				}
			}
			slog.Info("safety rejection, retrying with softened style",
				"from_style", style, "error", err)
			metrics.GenerationRetriesTotal.WithLabelValues("safety").Inc()
			style = StyleIllustration
			attempts = 0
			backoff = initialBackoff

		case classTransient:
			if attempts >= maxGenerateAttempts {
				return nil, style, &TransientUpstreamError{Err: err}
			}
			slog.Warn("transient generation failure, backing off",
				"attempt", attempts, "backoff", backoff, "error", err)
			metrics.GenerationRetriesTotal.WithLabelValues("transient").Inc()
			if serr := o.sleep(ctx, backoff); serr != nil {
				return nil, style, &TransientUpstreamError{Err: serr}
			}
			backoff = min(backoff*2, maxBackoff)

		default:
			return nil, style, fmt.Errorf("generating image: %w", err)
		}
	}
}
