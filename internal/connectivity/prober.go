package connectivity

import (
	"fmt"
	"net"
	"time"
)

// Prober answers "online or offline" with a single bounded TCP dial against a
// well-known reachable address. Results are never cached: connectivity can
// change between calls, so every decision point probes again.
type Prober struct {
	addr    string
	timeout time.Duration
}

func NewProber(host string, port int, timeout time.Duration) *Prober {
	if host == "" {
		host = "8.8.8.8"
	}
	if port <= 0 {
		port = 53
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Prober{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: timeout,
	}
}

// IsOnline reports whether the probe address accepted a connection. Any
// failure (timeout, refusal, DNS) counts as offline. One attempt, no retries.
func (p *Prober) IsOnline() bool {
	conn, err := net.DialTimeout("tcp", p.addr, p.timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
