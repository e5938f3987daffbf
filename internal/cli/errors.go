package cli

import "errors"

// ErrInvalidInvocation marks errors caused by how the command was called: bad flags,
// bad config files, unreadable input documents. Match with errors.Is.
var ErrInvalidInvocation = errors.New("invalid invocation")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrInvalidInvocation
}

// ExitCode maps a command error to a process exit status: 0 on success, 2 for an
// invalid invocation, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidInvocation):
		return 2
	}
	return 1
}
