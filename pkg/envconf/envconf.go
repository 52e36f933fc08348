// Package envconf loads the relay's settings from environment variables.
package envconf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"smtp-relay/pkg/model"
)

// DefaultDomain is used when the hostname carries no domain part to strip.
const DefaultDomain = "localdomain"

const (
	defaultCertFile  = "/etc/postfix/certs/smtpd.crt"
	defaultKeyFile   = "/etc/postfix/certs/smtpd.key"
	defaultNetworks  = "127.0.0.0/8"
	defaultMechs     = "plain login"
	defaultScheme    = "PLAIN"
	defaultSizeLimit = 10485760
	defaultStateDB   = "/var/lib/smtp-relay/state.db"
)

// Load reads the environment (a .env file first, when present; real
// environment variables win) and returns validated relay settings.
// Optional variables fall back to documented defaults without warning.
func Load() (model.Settings, error) {
	if err := loadDotEnv(); err != nil {
		return model.Settings{}, fmt.Errorf("load .env: %w", err)
	}

	hostname := os.Getenv("RELAY_MYHOSTNAME")
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return model.Settings{}, fmt.Errorf("system hostname: %w", err)
		}
		hostname = h
	}
	domain := os.Getenv("RELAY_DOMAIN")
	if domain == "" {
		domain = DeriveDomain(hostname)
	}

	sizeLimit := int64(defaultSizeLimit)
	if v, ok := os.LookupEnv("MESSAGE_SIZE_LIMIT"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return model.Settings{}, fmt.Errorf("MESSAGE_SIZE_LIMIT has invalid byte count %q", v)
		}
		sizeLimit = n
	}

	scheme := strings.ToUpper(getenv("SMTP_PASSWORD_SCHEME", defaultScheme))
	if scheme != "PLAIN" && scheme != "BLF-CRYPT" {
		return model.Settings{}, fmt.Errorf("SMTP_PASSWORD_SCHEME must be PLAIN or BLF-CRYPT, got %q", scheme)
	}

	s := model.Settings{
		Identity: model.Identity{
			Hostname: hostname,
			Domain:   domain,
		},
		Networks:         SplitList(getenv("ALLOWED_NETWORKS", defaultNetworks)),
		MessageSizeLimit: sizeLimit,
		RelayHost:        os.Getenv("RELAYHOST"),
		RelayUsername:    os.Getenv("RELAYHOST_USERNAME"),
		RelayPassword:    os.Getenv("RELAYHOST_PASSWORD"),
		TLS: model.TLSConfig{
			Enabled:  Truthy(os.Getenv("ENABLE_TLS")),
			CertFile: getenv("TLS_CERT", defaultCertFile),
			KeyFile:  getenv("TLS_KEY", defaultKeyFile),
			CAFile:   os.Getenv("TLS_CA"),
		},
		SASL: model.SASLConfig{
			Enabled:    Truthy(os.Getenv("ENABLE_SASL")),
			Mechanisms: getenv("AUTH_MECHANISMS", defaultMechs),
			Scheme:     scheme,
		},
		Credentials: ParseCredentials(
			os.Getenv("SMTP_USERS"),
			os.Getenv("SMTP_USERNAME"),
			os.Getenv("SMTP_PASSWORD"),
		),
		StateDB: getenv("STATE_DB", defaultStateDB),
	}
	return s, nil
}

// DeriveDomain strips the first label from hostname. An undotted hostname
// yields DefaultDomain rather than an empty string.
func DeriveDomain(hostname string) string {
	if i := strings.Index(hostname, "."); i > 0 && i+1 < len(hostname) {
		return hostname[i+1:]
	}
	return DefaultDomain
}

// SplitList splits a comma and/or space separated list into trimmed,
// non-empty elements.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseCredentials builds the credential list from the multi-entry
// SMTP_USERS form, falling back to the legacy single pair. The multi-entry
// form takes precedence when both are present. Entries missing either field
// are skipped.
func ParseCredentials(users, legacyUser, legacyPass string) []model.Credential {
	if users != "" {
		out := []model.Credential{}
		for _, entry := range strings.Split(users, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			name, secret, ok := strings.Cut(entry, ":")
			name, secret = strings.TrimSpace(name), strings.TrimSpace(secret)
			if !ok || name == "" || secret == "" {
				continue
			}
			out = append(out, model.Credential{Username: name, Secret: secret})
		}
		return out
	}
	if legacyUser != "" && legacyPass != "" {
		return []model.Credential{{Username: legacyUser, Secret: legacyPass}}
	}
	return []model.Credential{}
}

// Truthy reports whether a boolean-valued variable is set to an affirmative
// value. Anything else, including empty, is false.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
