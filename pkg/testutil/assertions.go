package testutil

import (
	"testing"

	"github.com/limistah/heimdal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode checks that err is a HeimdalError with code.
func AssertErrorCode(t *testing.T, err error, code errors.ErrorCode, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	assert.Equal(t, code, errors.GetErrorCode(err), msgAndArgs...)
}

// AssertExitCode checks the process exit status err maps to.
func AssertExitCode(t *testing.T, err error, code int, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, code, errors.ExitCode(err), msgAndArgs...)
}

// Confirm returns a prompt answer and records each prompt it was shown.
func Confirm(answer bool, prompts *[]string) func(string) (bool, error) {
	return func(p string) (bool, error) {
		if prompts != nil {
			*prompts = append(*prompts, p)
		}
		return answer, nil
	}
}
