// Package postconf is the directive store for the mail daemon's persistent
// configuration, backed by Postfix's own query tool.
package postconf

import (
	"fmt"
	"os/exec"
	"strings"
)

// Store reads and writes main.cf directives. Implementations must tolerate
// unknown-but-settable keys; value semantics are the daemon's business.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Exec implements Store by invoking postconf. Get uses `postconf -h` so the
// bare value comes back without the "key = " prefix; Set uses `postconf -e`,
// which rewrites main.cf in place and preserves unrelated directives.
type Exec struct {
	// ConfigDir overrides the Postfix configuration directory (postconf -c).
	// Empty means the compiled-in default.
	ConfigDir string
}

func (e Exec) Get(key string) (string, error) {
	out, err := exec.Command("postconf", e.args("-h", key)...).Output()
	if err != nil {
		return "", fmt.Errorf("postconf -h %s: %w", key, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e Exec) Set(key, value string) error {
	cmd := exec.Command("postconf", e.args("-e", key+"="+value)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("postconf -e %s: %v output=%s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (e Exec) args(extra ...string) []string {
	if e.ConfigDir == "" {
		return extra
	}
	return append([]string{"-c", e.ConfigDir}, extra...)
}
