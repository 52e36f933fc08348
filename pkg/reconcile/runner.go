package reconcile

import (
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command to completion. Reconciliation blocks
// on every call; there is no timeout at this layer.
type Runner interface {
	Run(name string, args ...string) error
}

// ExecRunner runs commands directly, folding combined output into the error.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v failed: %v output=%s", name, args, err, strings.TrimSpace(string(out)))
	}
	return nil
}
