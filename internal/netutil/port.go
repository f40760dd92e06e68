// Package netutil picks the TCP address the agent's HTTP server binds to.
package netutil

import (
	"errors"
	"fmt"
	"net"
)

// SelectBindAddr returns the first address the process can listen on. A
// free preferred address always wins; when it is taken and autoFallback is
// set, the candidates are tried in order. Without autoFallback a busy
// preferred address is an error rather than a silent port change.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	if preferred != "" {
		ok, err := IsAddrAvailable(preferred)
		if err != nil {
			return "", err
		}
		if ok {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("preferred bind address in use: %s", preferred)
		}
	}

	for _, addr := range candidates {
		ok, err := IsAddrAvailable(addr)
		if err != nil {
			return "", err
		}
		if ok {
			return addr, nil
		}
	}

	return "", errors.New("no available bind addresses")
}

// IsAddrAvailable reports whether addr can be listened on right now. The
// answer is advisory: another process can take the port between this check
// and the real listen.
func IsAddrAvailable(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if closeErr := ln.Close(); closeErr != nil {
		return false, closeErr
	}
	return true, nil
}
