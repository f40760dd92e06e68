package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// baselineDomains is the minimal domain set every page operation needs.
// Enablement is a one-time handshake per connection or attachment; the
// Connection tracks what has already been enabled so the handshake is
// never re-issued.
var baselineDomains = []string{"Page", "DOM", "Runtime"}

// Connection owns the single long-lived link to the browser's debugging
// endpoint. One per provider; never pooled or shared.
type Connection struct {
	endpoint     string
	browser      string
	probeTimeout time.Duration
	cmdTimeout   time.Duration
	log          *slog.Logger

	// mu guards state, tr and enabled. It also serves as the
	// single-initialization guard: two concurrent first operations cannot
	// both open the root connection or both enable domains.
	mu      sync.Mutex
	state   connState
	tr      *transport
	enabled map[string]bool
}

// TabSession is an ephemeral protocol attachment to one tab. It is opened
// per operation and must not outlive the operation that created it.
type TabSession struct {
	tabID     string
	sessionID string
	tr        *transport
}

func newConnection(endpoint, browser string, probeTimeout, cmdTimeout time.Duration, log *slog.Logger) *Connection {
	return &Connection{
		endpoint:     endpoint,
		browser:      browser,
		probeTimeout: probeTimeout,
		cmdTimeout:   cmdTimeout,
		log:          log,
		enabled:      make(map[string]bool),
	}
}

// Connect establishes the root connection. It is a no-op when already
// connected. The availability probe runs first; on probe failure no state
// transition happens.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Connection) connectLocked(ctx context.Context) error {
	if c.state == stateConnected {
		return nil
	}

	if !Probe(ctx, c.endpoint, c.probeTimeout) {
		return connErr(c.browser, errEndpointUnavailable)
	}

	c.state = stateConnecting
	c.log.Info("connecting to debugging endpoint", "browser", c.browser, "endpoint", c.endpoint)

	tr := newTransport(c.endpoint)
	if err := tr.connect(ctx); err != nil {
		c.state = stateDisconnected
		return connErr(c.browser, err)
	}

	for _, domain := range baselineDomains {
		if c.enabled[domain] {
			continue
		}
		// Page/DOM enablement is only meaningful on tab sessions, but
		// Target events flow on the root connection; enabling here keeps
		// the attach path cheap and records the handshake once.
		enableCtx, cancel := context.WithTimeout(ctx, c.cmdTimeout)
		err := tr.enableDomain(enableCtx, "", domain)
		cancel()
		if err != nil {
			c.log.Debug("root domain enable skipped", "domain", domain, "error", err)
			continue
		}
		c.enabled[domain] = true
	}

	c.tr = tr
	c.state = stateConnected
	c.log.Info("debugging endpoint connected", "browser", c.browser)
	return nil
}

// Disconnect tears the root connection down. Idempotent and best-effort:
// it always leaves the manager Disconnected and never reports transport
// close failures.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateDisconnected {
		return
	}
	if c.tr != nil {
		c.tr.close()
		c.tr = nil
	}
	c.enabled = make(map[string]bool)
	c.state = stateDisconnected
	c.log.Info("debugging endpoint disconnected", "browser", c.browser)
}

// Connected reports whether the root connection is established.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

// transportHandle returns the live transport, or a ConnectionError when not
// connected.
func (c *Connection) transportHandle() (*transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected || c.tr == nil {
		return nil, connErr(c.browser, errNotConnected)
	}
	return c.tr, nil
}

// OpenTabSession attaches to the named tab and enables the baseline domain
// set on the attachment. Domain enablement is per-attachment, not inherited
// from the root connection.
func (c *Connection) OpenTabSession(ctx context.Context, tabID string) (*TabSession, error) {
	tr, err := c.transportHandle()
	if err != nil {
		return nil, err
	}

	attachCtx, cancel := context.WithTimeout(ctx, c.cmdTimeout)
	sessionID, err := tr.attachToTarget(attachCtx, tabID)
	cancel()
	if err != nil {
		// The protocol reports a missing target as an attach error; there
		// is no separate existence check at this layer.
		return nil, &TabNotFoundError{TabID: tabID}
	}

	session := &TabSession{tabID: tabID, sessionID: sessionID, tr: tr}
	for _, domain := range baselineDomains {
		enableCtx, cancel := context.WithTimeout(ctx, c.cmdTimeout)
		err := tr.enableDomain(enableCtx, sessionID, domain)
		cancel()
		if err != nil {
			c.CloseTabSession(session)
			return nil, connErr(c.browser, err)
		}
	}

	c.log.Debug("tab session opened", "tab_id", tabID, "session_id", sessionID)
	return session, nil
}

// CloseTabSession detaches the session. Best-effort: failures are swallowed
// so cleanup never overrides the owning operation's own result or error.
func (c *Connection) CloseTabSession(s *TabSession) {
	if s == nil || s.sessionID == "" {
		return
	}
	detachCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.tr.detachFromTarget(detachCtx, s.sessionID); err != nil {
		c.log.Debug("tab session detach failed", "tab_id", s.tabID, "error", err)
	}
	s.sessionID = ""
}
