package model

// Credential is one username/secret pair destined for the auth daemon's
// credential file. The realm is a store-wide property, not per entry.
type Credential struct {
	Username string
	Secret   string
}
