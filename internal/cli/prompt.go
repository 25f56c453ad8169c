package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/limistah/heimdal/pkg/commands/statecmd"
	"github.com/limistah/heimdal/pkg/errors"
)

// Prompt asks a yes/no question on w and reads the answer from in. Anything
// but y or yes is a no.
func Prompt(in io.Reader, w io.Writer) statecmd.Confirm {
	reader := bufio.NewReader(in)
	return func(question string) (bool, error) {
		if _, err := fmt.Fprintf(w, "%s [y/N] ", question); err != nil {
			return false, err
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, errors.Wrap(err, errors.ErrInvalidInput, "failed to read answer")
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
