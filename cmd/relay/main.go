package main

import (
	"flag"
	"log"

	"smtp-relay/pkg/envconf"
	"smtp-relay/pkg/journal"
	"smtp-relay/pkg/postconf"
	"smtp-relay/pkg/reconcile"
	"smtp-relay/pkg/version"
)

func main() {
	showVersion := flag.Bool("v", false, "print version and exit")
	configDir := flag.String("config-dir", "", "override the mail daemon's configuration directory")
	checkOnly := flag.Bool("check-only", false, "reconcile and self-check, but do not hand off to the daemon")
	flag.Parse()

	if *showVersion {
		log.Printf("relay version=%s", version.Build)
		return
	}

	cfg, err := envconf.Load()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	log.Printf("relay version=%s hostname=%s domain=%s networks=%v tls=%v sasl=%v relayhost=%q",
		version.Build, cfg.Identity.Hostname, cfg.Identity.Domain, cfg.Networks,
		cfg.TLS.Enabled, cfg.SASL.Enabled, cfg.RelayHost)

	jr := journal.Open(cfg.StateDB)
	defer jr.Close()

	store := postconf.Exec{ConfigDir: *configDir}
	r := reconcile.New(store, reconcile.ExecRunner{}, jr)

	if err := r.Apply(cfg); err != nil {
		log.Fatalf("reconcile failed: %v", err)
	}
	log.Printf("configuration reconciled")

	if *checkOnly {
		if err := r.Run.Run("postfix", "check"); err != nil {
			log.Fatalf("configuration self-check: %v", err)
		}
		log.Printf("self-check passed")
		return
	}

	// Finalize returns only on failure: on success the process image is
	// replaced by the daemon's foreground mode.
	if err := r.Finalize(cfg); err != nil {
		log.Fatalf("handoff failed: %v", err)
	}
}
