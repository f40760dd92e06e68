package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds the liveness check against the debugging
// endpoint's metadata interface.
const DefaultProbeTimeout = 3 * time.Second

// Probe reports whether a debugging endpoint is live and speaking the
// expected protocol. It issues a single metadata request and returns false
// on any network error, non-success status, or timeout; it never errors and
// creates no protocol state (no WebSocket, no domain enablement).
func Probe(ctx context.Context, endpoint string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	base := strings.TrimRight(endpoint, "/")
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, base+"/json/version", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false
	}
	return info.WebSocketDebuggerURL != ""
}
