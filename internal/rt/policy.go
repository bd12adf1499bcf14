package rt

import (
	"fmt"
	"time"
)

// Policy is the recovery a timeout-fault handler applies.
type Policy string

const (
	PolicyRollback  Policy = "rollback"  // Return the partial state and restore the server
	PolicyKill      Policy = "kill"      // Abort the request and restore the server
	PolicyExtend    Policy = "extend"    // Grant the client more budget and resume
	PolicyEmergency Policy = "emergency" // Finish on the server's emergency budget
)

// Policies lists every policy in report order.
var Policies = []Policy{PolicyRollback, PolicyEmergency, PolicyExtend, PolicyKill}

// ParsePolicy returns the policy named s.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown recovery policy %q", s)
}

// Handler answers timeout faults with a fixed policy.
type Handler struct {
	Policy Policy

	// Extension is the budget added by PolicyExtend.
	Extension time.Duration

	// Cold evicts the caches before each recovery.
	Cold bool

	evict []byte
}

// NewHandler creates a handler. A cold handler sweeps evictBytes before
// every recovery.
func NewHandler(p Policy, extension time.Duration, cold bool, evictBytes int) *Handler {
	h := &Handler{Policy: p, Extension: extension, Cold: cold}
	if cold {
		h.evict = make([]byte, evictBytes)
	}
	return h
}

// Handle applies the policy to f. The returned Start stamp excludes the
// cache sweep.
func (h *Handler) Handle(f Fault) Reply {
	delivered := Now()
	if h.Cold {
		evictCaches(h.evict)
	}

	r := Reply{Policy: h.Policy, Delivered: delivered, Start: Now()}
	if h.Policy == PolicyExtend && f.SchedContext != nil {
		f.SchedContext.Extend(h.Extension)
	}
	return r
}

// evictCaches writes one byte per cache line of buf.
func evictCaches(buf []byte) {
	const line = 64
	for i := 0; i < len(buf); i += line {
		buf[i]++
	}
}
