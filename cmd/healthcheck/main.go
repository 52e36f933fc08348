package main

import (
	"bufio"
	"net"
	"os"
	"strings"
	"time"
)

// Exit-code-only probe for the container HEALTHCHECK: dials the SMTP port
// and expects the daemon's 220 greeting.
func main() {
	os.Exit(check())
}

func check() int {
	addr := os.Getenv("HEALTHCHECK_ADDR")
	if addr == "" {
		addr = "127.0.0.1:25"
	}

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return 1
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	banner, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return 1
	}
	if !strings.HasPrefix(banner, "220") {
		return 1
	}
	return 0
}
