// brandcut/transform/args.go
package transform

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// SplitExtraArgs securely splits the operator-supplied encoder argument
// string (FF_EXTRA_ARGS) into a slice without involving a shell.
func SplitExtraArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	args, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid extra args syntax: %w", err)
	}
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	return args, nil
}

// validateArgs rejects arguments with shell-like metacharacters. exec never
// runs a shell here, but extra args come from deployment config and a typo
// like "&& rm" should fail loudly at startup, not reach the engine.
func validateArgs(args []string) error {
	for _, arg := range args {
		if strings.ContainsAny(arg, "|&;`$()<>") {
			return fmt.Errorf("disallowed character found in argument: %s", arg)
		}
	}
	return nil
}
