package pipeline

import (
	"fmt"
	"strings"
)

// ConfigError is a fatal pre-flight problem: bad flag values or output
// path collisions. It aborts the run before any file is touched and
// carries the full list of problems so they can all be reported at once.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return strings.Join(e.Problems, "\n")
}

// Configf builds a single-problem ConfigError.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Problems: []string{fmt.Sprintf(format, args...)}}
}
