package cli

import "fmt"

// ExitError ends the process with Code after the command already reported
// its result, so nothing more is printed.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Reason)
}
