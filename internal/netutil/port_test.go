package netutil

import (
	"net"
	"strings"
	"testing"
)

// reserveAddr grabs an ephemeral loopback port and releases it, returning
// an address that was free a moment ago.
func reserveAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// occupyAddr holds an ephemeral loopback port open for the test's lifetime.
func occupyAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("occupy port: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().String()
}

func TestSelectBindAddrPrefersFreeAddress(t *testing.T) {
	want := reserveAddr(t)

	got, err := SelectBindAddr(want, nil, false)
	if err != nil {
		t.Fatalf("SelectBindAddr() error = %v", err)
	}
	if got != want {
		t.Fatalf("SelectBindAddr() = %q, want %q", got, want)
	}
}

func TestSelectBindAddrFallsBackWhenBusy(t *testing.T) {
	busy := occupyAddr(t)
	free := reserveAddr(t)

	got, err := SelectBindAddr(busy, []string{busy, free}, true)
	if err != nil {
		t.Fatalf("SelectBindAddr() error = %v", err)
	}
	if got != free {
		t.Fatalf("SelectBindAddr() = %q, want fallback %q", got, free)
	}
}

func TestSelectBindAddrBusyWithoutFallbackFails(t *testing.T) {
	busy := occupyAddr(t)

	_, err := SelectBindAddr(busy, []string{reserveAddr(t)}, false)
	if err == nil {
		t.Fatal("SelectBindAddr() = nil, want error when the preferred address is taken")
	}
	if !strings.Contains(err.Error(), busy) {
		t.Fatalf("error %q should name the busy address %q", err, busy)
	}
}
