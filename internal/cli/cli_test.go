// internal/cli/cli_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: in-memory readers and writers
// PURPOSE: Verify prompts, confirmation availability and format selection

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/output"
)

func TestPrompt(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{answer: "y\n", want: true},
		{answer: "YES\n", want: true},
		{answer: " yes \n", want: true},
		{answer: "n\n", want: false},
		{answer: "\n", want: false},
		{answer: "", want: false},
		{answer: "sure\n", want: false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.answer), func(t *testing.T) {
			var out bytes.Buffer
			ok, err := Prompt(strings.NewReader(tt.answer), &out)("Remove it?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Remove it? [y/N] ", out.String())
		})
	}
}

func TestConfirmNeedsTerminal(t *testing.T) {
	r := New(WithStdin(strings.NewReader("y\n")))
	assert.Nil(t, r.Confirm(&cobra.Command{}))
}

func TestConfirmOverride(t *testing.T) {
	r := New(WithConfirm(func(string) (bool, error) { return true, nil }))
	fn := r.Confirm(&cobra.Command{})
	require.NotNil(t, fn)
	ok, err := fn("?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRenderer(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	r := New()
	r.Flags.Output = "yaml"
	out, err := r.Renderer(cmd)
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, out.Format())

	r.Flags.Output = "xml"
	_, err = r.Renderer(cmd)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 2, Reason: "conflicts found"}
	assert.Equal(t, "exit status 2: conflicts found", err.Error())
}
