// Package reconcile brings the mail daemon's persistent configuration into
// agreement with the current environment, provisions TLS and credential
// material as needed, and hands the process over to the daemon.
package reconcile

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"smtp-relay/pkg/journal"
	"smtp-relay/pkg/model"
	"smtp-relay/pkg/postconf"
)

// Reconciler applies one startup's settings. It runs once per process
// lifetime, synchronously, and assumes exclusive access to the configuration
// store and credential files; run a single instance per persistent volume.
type Reconciler struct {
	Store   postconf.Store
	Run     Runner
	Journal *journal.Journal

	// CredentialFile is the auth daemon's passwd-file.
	CredentialFile string
	// DovecotConf is the auth daemon's configuration path.
	DovecotConf string
	// SASLPasswdFile is the plaintext relay-auth map; it exists only for the
	// moment between writing and compiling it.
	SASLPasswdFile string

	// LookPath resolves the daemon binary. Overridable in tests.
	LookPath func(file string) (string, error)
	// Exec replaces the current process image. Overridable in tests.
	Exec func(argv0 string, argv []string, envv []string) error
}

// New returns a Reconciler with the fixed production paths.
func New(store postconf.Store, run Runner, jr *journal.Journal) *Reconciler {
	return &Reconciler{
		Store:          store,
		Run:            run,
		Journal:        jr,
		CredentialFile: "/etc/dovecot/passwd",
		DovecotConf:    "/etc/dovecot/dovecot.conf",
		SASLPasswdFile: "/etc/postfix/sasl_passwd",
		LookPath:       exec.LookPath,
		Exec:           syscall.Exec,
	}
}

// Apply reconciles every directive and side effect for the given settings.
// It performs at most one underlying write per changed directive and leaves
// directives that already hold the desired value untouched.
func (r *Reconciler) Apply(s model.Settings) error {
	if err := r.applyCore(s); err != nil {
		return err
	}
	if err := r.ensureCertificate(s); err != nil {
		return err
	}
	if err := r.ensureCredentialStore(s); err != nil {
		return err
	}
	return r.ensureRelayAuth(s)
}

func (r *Reconciler) applyCore(s model.Settings) error {
	directives := []struct{ key, value string }{
		{"myhostname", s.Identity.Hostname},
		{"mydomain", s.Identity.Domain},
		{"myorigin", s.Identity.Domain},
		{"mynetworks", strings.Join(s.Networks, " ")},
		{"message_size_limit", strconv.FormatInt(s.MessageSizeLimit, 10)},
		{"smtpd_relay_restrictions", "permit_mynetworks permit_sasl_authenticated defer_unauth_destination"},
		{"maillog_file", "/dev/stdout"},
	}
	for _, d := range directives {
		if err := r.setDirective(d.key, d.value); err != nil {
			return err
		}
	}
	return nil
}

// ensureCertificate provisions self-signed TLS material lazily: existing
// files at the configured paths are never regenerated, so operator-supplied
// certificates survive restarts.
func (r *Reconciler) ensureCertificate(s model.Settings) error {
	if !s.TLS.Enabled {
		return r.setDirective("smtpd_use_tls", "no")
	}

	if !fileExists(s.TLS.CertFile) || !fileExists(s.TLS.KeyFile) {
		if err := generateSelfSigned(s.Identity.Hostname, s.TLS.CertFile, s.TLS.KeyFile); err != nil {
			return fmt.Errorf("provision tls material: %w", err)
		}
		log.Printf("generated self-signed certificate cn=%s cert=%s key=%s", s.Identity.Hostname, s.TLS.CertFile, s.TLS.KeyFile)
		r.Journal.Record("certificate", s.TLS.CertFile, "self-signed cn="+s.Identity.Hostname)
	}

	directives := []struct{ key, value string }{
		{"smtpd_use_tls", "yes"},
		{"smtpd_tls_cert_file", s.TLS.CertFile},
		{"smtpd_tls_key_file", s.TLS.KeyFile},
		{"smtpd_tls_security_level", "may"},
	}
	for _, d := range directives {
		if err := r.setDirective(d.key, d.value); err != nil {
			return err
		}
	}
	if s.TLS.CAFile != "" {
		return r.setDirective("smtpd_tls_CAfile", s.TLS.CAFile)
	}
	return r.clearDirective("smtpd_tls_CAfile")
}

// Finalize runs the daemon's self-check, starts the auth sub-daemon when
// enabled, and replaces the current process with the daemon's foreground
// mode. On success it does not return.
func (r *Reconciler) Finalize(s model.Settings) error {
	if err := r.Run.Run("postfix", "check"); err != nil {
		return fmt.Errorf("configuration self-check: %w", err)
	}
	if s.SASL.Enabled {
		if err := r.Run.Run("dovecot"); err != nil {
			return fmt.Errorf("start auth daemon: %w", err)
		}
	}
	path, err := r.LookPath("postfix")
	if err != nil {
		return fmt.Errorf("locate mail daemon: %w", err)
	}
	return r.Exec(path, []string{"postfix", "start-fg"}, os.Environ())
}

// setDirective is idempotent: the desired value is written only when the
// store disagrees, so a rerun with an unchanged environment writes nothing.
func (r *Reconciler) setDirective(key, value string) error {
	current, err := r.Store.Get(key)
	if err != nil {
		return fmt.Errorf("read directive %s: %w", key, err)
	}
	if current == value {
		return nil
	}
	if err := r.Store.Set(key, value); err != nil {
		return fmt.Errorf("write directive %s: %w", key, err)
	}
	r.Journal.Record("directive", key, value)
	return nil
}

func (r *Reconciler) clearDirective(key string) error {
	return r.setDirective(key, "")
}
