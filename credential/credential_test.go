package credential

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/task"
)

// fakeAcquirer resolves identities from a table; identities mapped to an
// error fail, unknown identities block until cancelled.
type fakeAcquirer struct {
	mu        sync.Mutex
	requested []Identity
	fail      map[Identity]error
	known     map[Identity]bool
}

func (f *fakeAcquirer) Acquire(ctx context.Context, id Identity) (*Credential, task.Task, error) {
	f.mu.Lock()
	f.requested = append(f.requested, id)
	f.mu.Unlock()

	if err, ok := f.fail[id]; ok {
		return nil, nil, err
	}
	if !f.known[id] {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	cell := NewCell(&oauth2.Token{AccessToken: id.String()})
	return &Credential{Identity: id, Cell: cell}, task.New(renewalTaskName(id), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), nil
}

func TestAcquireAllSuccess(t *testing.T) {
	acq := &fakeAcquirer{known: map[Identity]bool{Spotify: true, TwitchStreamer: true, TwitchBot: true}}
	ids := []Identity{Spotify, TwitchStreamer, TwitchBot}

	set, tasks, err := AcquireAll(context.Background(), acq, ids)
	if err != nil {
		t.Fatalf("AcquireAll: %v", err)
	}
	if set.Len() != 3 || len(tasks) != 3 {
		t.Fatalf("expected 3 credentials and tasks, got %d/%d", set.Len(), len(tasks))
	}
	for i, id := range ids {
		cred, ok := set.Get(id)
		if !ok || cred.Cell.AccessToken() != id.String() {
			t.Errorf("credential for %s mismatched: %+v", id, cred)
		}
		if tasks[i].Name() != "renew:"+id.String() {
			t.Errorf("task %d: expected renew:%s, got %s", i, id, tasks[i].Name())
		}
	}
}

func TestAcquireAllOneFailureFailsBatch(t *testing.T) {
	rejected := errors.New("access_denied")
	acq := &fakeAcquirer{
		known: map[Identity]bool{Spotify: true},
		fail:  map[Identity]error{TwitchBot: rejected},
	}

	done := make(chan struct{})
	var set *Set
	var tasks []task.Task
	var err error
	go func() {
		defer close(done)
		// TwitchStreamer blocks until the failure cancels it.
		set, tasks, err = AcquireAll(context.Background(), acq, []Identity{Spotify, TwitchStreamer, TwitchBot})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AcquireAll did not return after a failure")
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeAcquisition) || !errors.Is(err, rejected) {
		t.Fatalf("expected wrapped acquisition error, got %v", err)
	}
	if set != nil || tasks != nil {
		t.Error("no partial credential set may be returned")
	}
}

// stubAcquirer returns whatever the table holds for an identity, after an
// optional delay.
type stubAcquirer struct {
	creds map[Identity]*Credential
	tasks map[Identity]task.Task
	delay map[Identity]time.Duration
}

func (s *stubAcquirer) Acquire(ctx context.Context, id Identity) (*Credential, task.Task, error) {
	select {
	case <-time.After(s.delay[id]):
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return s.creds[id], s.tasks[id], nil
}

func idle(name string) task.Task {
	return task.New(name, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
}

func TestAcquireAllRejectsIncompleteResults(t *testing.T) {
	token := NewCell(&oauth2.Token{AccessToken: "t"})
	tests := []struct {
		name string
		cred *Credential
		task task.Task
	}{
		{"nil credential", nil, idle("renew")},
		{"nil cell", &Credential{Identity: Spotify}, idle("renew")},
		{"wrong identity", &Credential{Identity: TwitchBot, Cell: token}, idle("renew")},
		{"nil renewal task", &Credential{Identity: Spotify, Cell: token}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acq := &stubAcquirer{
				creds: map[Identity]*Credential{Spotify: tt.cred},
				tasks: map[Identity]task.Task{Spotify: tt.task},
			}
			set, tasks, err := AcquireAll(context.Background(), acq, []Identity{Spotify})
			if !apperrors.HasCode(err, apperrors.ErrCodeAcquisition) {
				t.Fatalf("expected ACQUISITION_ERROR, got %v", err)
			}
			if set != nil || tasks != nil {
				t.Error("no credential may be returned from a failed batch")
			}
		})
	}
}

func TestAcquireAllKeepsRequestOrderForAnyTaskName(t *testing.T) {
	acq := &stubAcquirer{
		creds: map[Identity]*Credential{
			Spotify:   {Identity: Spotify, Cell: NewCell(&oauth2.Token{AccessToken: "s"})},
			TwitchBot: {Identity: TwitchBot, Cell: NewCell(&oauth2.Token{AccessToken: "b"})},
		},
		tasks: map[Identity]task.Task{
			Spotify:   idle("zz-spotify-refresh"),
			TwitchBot: idle("aa-bot-refresh"),
		},
		// The first request finishes last.
		delay: map[Identity]time.Duration{Spotify: 20 * time.Millisecond},
	}
	_, tasks, err := AcquireAll(context.Background(), acq, []Identity{Spotify, TwitchBot})
	if err != nil {
		t.Fatalf("AcquireAll: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Name() != "zz-spotify-refresh" || tasks[1].Name() != "aa-bot-refresh" {
		t.Errorf("tasks out of request order: %v", taskNames(tasks))
	}
}

func taskNames(tasks []task.Task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name()
	}
	return names
}

func TestAcquireAllRejectsDuplicates(t *testing.T) {
	acq := &fakeAcquirer{known: map[Identity]bool{Spotify: true}}
	_, _, err := AcquireAll(context.Background(), acq, []Identity{Spotify, Spotify})
	if !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(acq.requested) != 0 {
		t.Error("no acquisition may start for a duplicate request")
	}
}

func TestAcquireAllShutdown(t *testing.T) {
	acq := &fakeAcquirer{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, _, err := AcquireAll(ctx, acq, []Identity{Spotify})
	if !errors.Is(err, context.Canceled) || apperrors.HasCode(err, apperrors.ErrCodeAcquisition) {
		t.Fatalf("expected plain cancellation, got %v", err)
	}
}

func TestOAuthUnknownIdentity(t *testing.T) {
	_, _, err := NewOAuth().Acquire(context.Background(), TwitchBot)
	if !apperrors.HasCode(err, apperrors.ErrCodeAcquisition) {
		t.Fatalf("expected ACQUISITION_ERROR, got %v", err)
	}
}

func TestIdentityString(t *testing.T) {
	if Spotify.String() != "spotify" || TwitchStreamer.String() != "twitch-streamer" {
		t.Error("unexpected identity names")
	}
}
