package credential

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/observability"
	"github.com/kbukum/streambot/resilience"
)

// RenewalPolicy decides when and how persistently a token is refreshed.
type RenewalPolicy struct {
	// Margin is how long before expiry the refresh happens.
	Margin time.Duration
	// Minimum is the shortest wait between refreshes.
	Minimum time.Duration
	// Retry governs transient refresh failures.
	Retry resilience.RetryConfig
}

func (p *RenewalPolicy) applyDefaults() {
	if p.Margin <= 0 {
		p.Margin = 5 * time.Minute
	}
	if p.Minimum <= 0 {
		p.Minimum = 10 * time.Second
	}
	if p.Retry.MaxAttempts <= 0 {
		p.Retry = resilience.DefaultRetryConfig()
	}
}

// delay returns how long to wait for a token expiring in remaining.
func (p RenewalPolicy) delay(remaining time.Duration) time.Duration {
	if d := remaining - p.Margin; d > p.Minimum {
		return d
	}
	return p.Minimum
}

// Renewer is the renewal task of one credential. It is the only writer of
// the credential's cell.
type Renewer struct {
	id      Identity
	cell    *Cell
	policy  RenewalPolicy
	refresh func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	save    func(tok *oauth2.Token)
	after   func(d time.Duration) <-chan time.Time
	log     *logger.Logger
}

// Renewer returns the renewal task body for a cell filled by this flow.
func (f *Flow) Renewer(cell *Cell) *Renewer {
	return &Renewer{
		id:      f.id,
		cell:    cell,
		policy:  f.renewal,
		refresh: f.refresh,
		save:    f.save,
		after:   time.After,
		log:     f.log,
	}
}

// Run refreshes the token shortly before each expiry until ctx is done. A
// rejected refresh token, or a refresh that keeps failing, ends the task
// with an error.
func (r *Renewer) Run(ctx context.Context) error {
	metrics := observability.Default()
	for {
		current := r.cell.Load()
		if current == nil {
			return fmt.Errorf("renew %s: %w", r.id, ErrEmptyCell)
		}
		if current.Expiry.IsZero() {
			// Non-expiring token.
			<-ctx.Done()
			return ctx.Err()
		}

		wait := r.policy.delay(time.Until(current.Expiry))
		r.log.Debug("next token refresh scheduled", logger.Fields("in", wait.String()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(wait):
		}

		if current.RefreshToken == "" {
			return fmt.Errorf("renew %s: token has no refresh token", r.id)
		}

		spanCtx, span := observability.StartSpan(ctx, observability.SpanRenew)
		next, err := resilience.Retry(spanCtx, r.policy.Retry, func(ctx context.Context) (*oauth2.Token, error) {
			tok, err := r.refresh(ctx, current.RefreshToken)
			if err != nil && isRejected(err) {
				return nil, resilience.Permanent(err)
			}
			return tok, err
		})
		observability.EndSpan(span, err)
		metrics.RecordRenewal(ctx, r.id.String(), err)

		if err != nil {
			if ctx.Err() != nil && stderrors.Is(err, ctx.Err()) {
				return ctx.Err()
			}
			return fmt.Errorf("renew %s: %w", r.id, err)
		}

		r.cell.Store(next)
		r.save(next)
		r.log.Info("token refreshed", logger.Fields("expires", next.Expiry.Format(time.RFC3339)))
	}
}
