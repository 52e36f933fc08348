package reconcile

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"smtp-relay/pkg/model"
)

// ensureCredentialStore configures the auth sub-daemon and rebuilds its
// credential file. With authentication disabled only the enable directive is
// forced off; existing credential files are left alone for the daemons to
// ignore.
func (r *Reconciler) ensureCredentialStore(s model.Settings) error {
	if !s.SASL.Enabled {
		return r.setDirective("smtpd_sasl_auth_enable", "no")
	}

	directives := []struct{ key, value string }{
		{"smtpd_sasl_auth_enable", "yes"},
		{"smtpd_sasl_type", "dovecot"},
		{"smtpd_sasl_path", "private/auth"},
		{"smtpd_sasl_local_domain", s.Identity.Hostname},
		{"smtpd_sasl_security_options", "noanonymous"},
		{"broken_sasl_auth_clients", "yes"},
	}
	for _, d := range directives {
		if err := r.setDirective(d.key, d.value); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(r.DovecotConf), 0o755); err != nil {
		return fmt.Errorf("mkdir auth daemon config dir: %w", err)
	}
	conf := renderDovecotConf(s.SASL.Mechanisms, r.CredentialFile)
	if err := os.WriteFile(r.DovecotConf, []byte(conf), 0o644); err != nil {
		return fmt.Errorf("write auth daemon config: %w", err)
	}

	content, count, err := renderPasswdFile(s.Credentials, s.SASL.Scheme)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.CredentialFile), 0o755); err != nil {
		return fmt.Errorf("mkdir credential dir: %w", err)
	}
	if err := os.WriteFile(r.CredentialFile, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	r.Journal.Record("credentials", r.CredentialFile, fmt.Sprintf("%d entries scheme=%s", count, s.SASL.Scheme))

	if count == 0 {
		// Deliberately not fatal: the relay may still be reachable from
		// allow-listed networks.
		log.Printf("warning: authentication enabled but no usable credentials configured; only allowed networks can relay")
	}
	return nil
}

// renderPasswdFile builds passwd-file content, one "user:{SCHEME}secret"
// line per credential. BLF-CRYPT secrets are bcrypt hashes so no plaintext
// lands on disk.
func renderPasswdFile(creds []model.Credential, scheme string) (string, int, error) {
	var b strings.Builder
	count := 0
	for _, c := range creds {
		if c.Username == "" || c.Secret == "" {
			continue
		}
		secret := c.Secret
		if scheme == "BLF-CRYPT" {
			hash, err := bcrypt.GenerateFromPassword([]byte(c.Secret), bcrypt.DefaultCost)
			if err != nil {
				return "", 0, fmt.Errorf("hash credential for %s: %w", c.Username, err)
			}
			secret = string(hash)
		}
		fmt.Fprintf(&b, "%s:{%s}%s\n", c.Username, scheme, secret)
		count++
	}
	return b.String(), count, nil
}
