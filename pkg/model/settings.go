package model

// Identity is the relay's resolved hostname and mail origin domain.
type Identity struct {
	Hostname string
	Domain   string
}

// TLSConfig controls server-side TLS provisioning for the smtpd listener.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// SASLConfig controls the authentication sub-daemon and its directives.
type SASLConfig struct {
	Enabled    bool
	Mechanisms string
	Scheme     string
}

// Settings is the full reconciled state for one startup, derived from the
// environment before any directive is touched.
type Settings struct {
	Identity         Identity
	Networks         []string
	MessageSizeLimit int64

	RelayHost     string
	RelayUsername string
	RelayPassword string

	TLS  TLSConfig
	SASL SASLConfig

	Credentials []Credential

	StateDB string
}
