package reconcile

import (
	"fmt"
	"strings"
)

// renderDovecotConf produces the auth sub-daemon's configuration: the
// advertised mechanisms, a passwd-file passdb over the credential file, and
// the auth socket Postfix reaches through smtpd_sasl_path.
func renderDovecotConf(mechanisms, credentialFile string) string {
	var b strings.Builder
	b.WriteString("protocols =\n")
	fmt.Fprintf(&b, "auth_mechanisms = %s\n", mechanisms)
	b.WriteString("\n")
	b.WriteString("passdb {\n")
	b.WriteString("  driver = passwd-file\n")
	fmt.Fprintf(&b, "  args = %s\n", credentialFile)
	b.WriteString("}\n")
	b.WriteString("\n")
	b.WriteString("service auth {\n")
	b.WriteString("  unix_listener /var/spool/postfix/private/auth {\n")
	b.WriteString("    mode = 0660\n")
	b.WriteString("    user = postfix\n")
	b.WriteString("    group = postfix\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}
