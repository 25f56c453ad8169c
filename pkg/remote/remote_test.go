// pkg/remote/remote_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Verify error classification and the in-memory fake

package remote_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCode     errors.ErrorCode
		wantDiverged bool
	}{
		{"deadline", context.DeadlineExceeded, errors.ErrRemoteUnreachable, false},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), errors.ErrRemoteUnreachable, false},
		{"dns", &net.DNSError{Err: "no such host", Name: "git.example.com"}, errors.ErrRemoteUnreachable, false},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, errors.ErrRemoteUnreachable, false},
		{"refused text only", stderrors.New("dial tcp 10.0.0.1:22: connect: connection refused"), errors.ErrRemoteUnreachable, false},
		{"hung up", stderrors.New("the remote hung up unexpectedly"), errors.ErrRemoteUnreachable, false},
		{"auth", stderrors.New("authentication required"), errors.ErrRemoteFailed, false},
		{"not found", stderrors.New("repository not found"), errors.ErrRemoteFailed, false},
		{"rejected push", stderrors.New("non-fast-forward update: refs/heads/main"), errors.ErrRemoteFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := remote.Classify(tt.err, "fetch")
			assert.True(t, errors.IsErrorCode(err, tt.wantCode), "got %v", err)
			assert.Equal(t, tt.wantDiverged, remote.IsDiverged(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, remote.Classify(nil, "fetch"))

	coded := errors.New(errors.ErrRemoteFailed, "already classified")
	assert.Same(t, coded, remote.Classify(coded, "push"))
}

func TestIsUnreachable(t *testing.T) {
	assert.False(t, remote.IsUnreachable(nil))
	assert.True(t, remote.IsUnreachable(errors.New(errors.ErrRemoteUnreachable, "offline")))
	assert.False(t, remote.IsUnreachable(errors.New(errors.ErrRemoteFailed, "denied")))
}

func TestFake(t *testing.T) {
	ctx := context.Background()
	f := remote.NewFake(nil)

	data, err := f.FetchRemoteState(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	local := filepath.Join(t.TempDir(), "heimdal.state.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"serial":3}`), 0644))
	f.PublishFrom = local

	require.NoError(t, f.Commit(ctx, []string{local}, "heimdal: sync"))
	require.NoError(t, f.Push(ctx))

	data, err = f.FetchRemoteState(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"serial":3}`, string(data))
	assert.Equal(t, 2, f.Fetches)
	assert.Equal(t, 1, f.Pushes)
	require.Len(t, f.Commits, 1)
	assert.Equal(t, "heimdal: sync", f.Commits[0].Message)

	f.FetchErr = errors.New(errors.ErrRemoteUnreachable, "offline")
	_, err = f.FetchRemoteState(ctx)
	assert.True(t, remote.IsUnreachable(err))
}
