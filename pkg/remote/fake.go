package remote

import (
	"context"
	"os"
	"sync"
)

// FakeCommit records one Fake.Commit call.
type FakeCommit struct {
	Paths   []string
	Message string
}

// Fake is an in-memory Remote for tests. When PublishFrom is set, Push
// copies that file into State, like pushing the committed state file.
type Fake struct {
	mu sync.Mutex

	State       []byte
	Head        string
	PublishFrom string

	FetchErr  error
	CommitErr error
	PushErr   error
	PullErr   error

	Fetches int
	Pushes  int
	Pulls   int
	Commits []FakeCommit
}

var _ Remote = (*Fake)(nil)

// NewFake returns a Fake serving state.
func NewFake(state []byte) *Fake {
	return &Fake{State: state}
}

func (f *Fake) FetchRemoteState(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if f.State == nil {
		return nil, nil
	}
	return append([]byte(nil), f.State...), nil
}

func (f *Fake) Commit(ctx context.Context, paths []string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Commits = append(f.Commits, FakeCommit{Paths: append([]string(nil), paths...), Message: message})
	return nil
}

func (f *Fake) Push(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pushes++
	if f.PushErr != nil {
		return f.PushErr
	}
	if f.PublishFrom != "" {
		data, err := os.ReadFile(f.PublishFrom)
		if err != nil {
			return Classify(err, "push")
		}
		f.State = data
	}
	return nil
}

func (f *Fake) Pull(ctx context.Context, rebase bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pulls++
	return f.PullErr
}

func (f *Fake) HeadCommit() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Head, nil
}

// Published returns a copy of the current remote state.
func (f *Fake) Published() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.State...)
}
