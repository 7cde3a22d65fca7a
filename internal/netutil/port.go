package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// SelectBindAddr returns the preferred address when it is free. When it is
// busy and autoFallback is set, the candidates are probed in order and the
// first free one wins.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	if preferred != "" {
		if addrAvailable(preferred) {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("bind address %s is in use and fallback is disabled", preferred)
		}
		slog.Warn("preferred bind address in use, probing candidates", "preferred", preferred)
	}

	for _, addr := range candidates {
		if addrAvailable(addr) {
			return addr, nil
		}
	}

	tried := candidates
	if preferred != "" {
		tried = append([]string{preferred}, candidates...)
	}
	return "", fmt.Errorf("no free bind address (tried %s)", strings.Join(tried, ", "))
}

// addrAvailable probes an address by briefly listening on it.
func addrAvailable(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
