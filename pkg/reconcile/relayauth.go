package reconcile

import (
	"fmt"
	"log"
	"os"

	"smtp-relay/pkg/model"
)

// ensureRelayAuth points the daemon at the upstream smarthost and compiles
// its authentication map. With no smarthost configured the relay directive
// is cleared so a stale upstream from a previous run is never retained.
func (r *Reconciler) ensureRelayAuth(s model.Settings) error {
	if s.RelayHost == "" {
		return r.clearDirective("relayhost")
	}

	if err := r.setDirective("relayhost", s.RelayHost); err != nil {
		return err
	}

	if s.RelayUsername == "" || s.RelayPassword == "" {
		if err := r.setDirective("smtp_sasl_auth_enable", "no"); err != nil {
			return err
		}
		return r.clearDirective("smtp_sasl_password_maps")
	}

	if err := r.compileRelayMap(s); err != nil {
		return err
	}

	directives := []struct{ key, value string }{
		{"smtp_sasl_auth_enable", "yes"},
		{"smtp_sasl_password_maps", "hash:" + r.SASLPasswdFile},
		{"smtp_sasl_security_options", "noanonymous"},
		{"smtp_use_tls", "yes"},
		{"smtp_tls_security_level", "may"},
	}
	for _, d := range directives {
		if err := r.setDirective(d.key, d.value); err != nil {
			return err
		}
	}
	return nil
}

// compileRelayMap writes the one-line plaintext map, compiles it into the
// daemon's lookup format, and removes the plaintext again. Removal happens
// on the failure path too; only the compiled map may outlive this call.
func (r *Reconciler) compileRelayMap(s model.Settings) error {
	line := fmt.Sprintf("%s %s:%s\n", s.RelayHost, s.RelayUsername, s.RelayPassword)
	if err := os.WriteFile(r.SASLPasswdFile, []byte(line), 0o600); err != nil {
		return fmt.Errorf("write relay auth map: %w", err)
	}
	defer func() {
		if err := os.Remove(r.SASLPasswdFile); err != nil && !os.IsNotExist(err) {
			log.Printf("remove plaintext relay auth map failed: %v", err)
		}
	}()

	if err := r.Run.Run("postmap", "hash:"+r.SASLPasswdFile); err != nil {
		return fmt.Errorf("compile relay auth map: %w", err)
	}
	r.Journal.Record("relay-auth", r.SASLPasswdFile+".db", "map compiled for "+s.RelayHost)
	return nil
}
