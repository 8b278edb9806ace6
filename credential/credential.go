package credential

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/observability"
	"github.com/kbukum/streambot/task"
)

// Credential is an acquired token shared by every subsystem that needs it.
type Credential struct {
	Identity Identity
	Cell     *Cell
}

// Acquirer drives one authorization to completion. It returns the credential
// and the renewal task that keeps it valid; the task belongs in the join set.
// Acquire may block indefinitely waiting for the operator.
type Acquirer interface {
	Acquire(ctx context.Context, id Identity) (*Credential, task.Task, error)
}

// Set holds acquired credentials keyed by identity.
type Set struct {
	byID map[Identity]*Credential
}

// NewSet creates a set from creds.
func NewSet(creds ...*Credential) *Set {
	s := &Set{byID: make(map[Identity]*Credential, len(creds))}
	for _, c := range creds {
		s.byID[c.Identity] = c
	}
	return s
}

// Get returns the credential for id.
func (s *Set) Get(id Identity) (*Credential, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.byID[id]
	return c, ok
}

// Len returns the number of credentials.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// Identities returns the identities held, sorted by name.
func (s *Set) Identities() []Identity {
	if s == nil {
		return nil
	}
	ids := make([]Identity, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// AcquireAll acquires every identity concurrently. Either all succeed and
// the full set is returned with one renewal task per credential, or the
// first failure cancels the others and no credential is returned.
func AcquireAll(ctx context.Context, acq Acquirer, ids []Identity) (*Set, []task.Task, error) {
	seen := make(map[Identity]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, nil, errors.Configuration(fmt.Sprintf("credential %s requested twice", id))
		}
		seen[id] = true
	}

	creds := make([]*Credential, len(ids))
	tasks := make([]task.Task, len(ids))
	metrics := observability.Default()

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			start := time.Now()
			spanCtx, span := observability.StartSpan(gctx, observability.SpanAcquire)
			cred, renew, err := acq.Acquire(spanCtx, id)
			if err == nil {
				err = checkAcquired(id, cred, renew)
			}
			observability.EndSpan(span, err)
			metrics.RecordAcquisition(gctx, id.String(), time.Since(start), err)
			if err != nil {
				if errors.HasCode(err, errors.ErrCodeAcquisition) {
					return err
				}
				return errors.Acquisition(id.String(), err)
			}

			logger.Info("credential acquired", logger.Fields(logger.FieldIdentity, id.String()))

			// Each goroutine owns its own slot; results stay in request order.
			creds[i] = cred
			tasks[i] = renew
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, err
	}
	return NewSet(creds...), tasks, nil
}

// checkAcquired rejects an acquirer result the rest of startup cannot use.
func checkAcquired(id Identity, cred *Credential, renew task.Task) error {
	switch {
	case cred == nil:
		return fmt.Errorf("acquirer returned no credential")
	case cred.Cell == nil:
		return fmt.Errorf("acquirer returned a credential without a token")
	case cred.Identity != id:
		return fmt.Errorf("acquirer returned a credential for %s", cred.Identity)
	case renew == nil:
		return fmt.Errorf("acquirer returned no renewal task")
	}
	return nil
}

func renewalTaskName(id Identity) string {
	return "renew:" + id.String()
}
