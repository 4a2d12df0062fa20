package bench

import (
	"errors"
	"fmt"
	"strings"
)

var ErrSuiteClosed = errors.New("benchmark suite is closed")

// TransportError reports a failed request against the server-under-test.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DuplicateKeyError reports a marker emitted twice during one trial.
type DuplicateKeyError struct {
	Kind MarkerKind
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s key %q in trial", e.Kind, e.Key)
}

// IncompatibleTrialsError reports a trial whose timing keys differ from the
// first trial of the same case.
type IncompatibleTrialsError struct {
	Trial      int
	Missing    []string
	Unexpected []string
}

func (e *IncompatibleTrialsError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "incompatible successive trials: trial %d has a different timing key set", e.Trial)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing: %s)", strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		fmt.Fprintf(&b, " (unexpected: %s)", strings.Join(e.Unexpected, ", "))
	}
	return b.String()
}

// LaunchError reports a server-under-test that could not be started.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch server: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
