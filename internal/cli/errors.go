package cli

import "errors"

// ErrUsage marks errors caused by how sdkgen was invoked — unknown flags,
// missing required options like --input/--tests, malformed config files —
// rather than by the generation pipeline itself. main exits with code 2 when
// an error matches it.
var ErrUsage = errors.New("cli usage error")

// usageError carries a fully formatted message, often including a command's
// usage text, and matches ErrUsage via errors.Is.
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
	return target == ErrUsage
}
