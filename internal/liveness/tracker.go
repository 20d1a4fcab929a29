// Package liveness implements the periodic peer-ping loop that maintains
// a node's alive-set. It is adapted from the health-check loop shape of
// johnjansen-torua's HealthMonitor — periodic ticker, parallel probes,
// swap-in of the computed result — stripped of consecutive-failure
// thresholds and unhealthy callbacks, reduced to a simple binary per-tick
// check: responded ALIVE within the timeout, or not.
package liveness

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/DamPhong1311/phantan/internal/peer"
)

// PingInterval is how often the tracker probes every peer.
const PingInterval = 10 * time.Second

// Tracker maintains self's belief about which peers are currently
// reachable. Readers (the request server) call Snapshot, which never
// blocks on an in-flight ping round — they see either the pre- or
// post-update set.
type Tracker struct {
	self   string
	peers  []string
	client *peer.Client

	alive atomic.Pointer[map[string]struct{}]
}

// New returns a Tracker for self, probing every address in peers (self
// should not be included in peers). The alive-set starts out containing
// every configured peer plus self, optimistically, until the first ping
// round corrects it.
func New(self string, peers []string, client *peer.Client) *Tracker {
	t := &Tracker{self: self, peers: peers, client: client}

	initial := make(map[string]struct{}, len(peers)+1)
	initial[self] = struct{}{}
	for _, p := range peers {
		initial[p] = struct{}{}
	}
	t.alive.Store(&initial)
	return t
}

// Snapshot returns the current alive-set. Self is always present.
func (t *Tracker) Snapshot() map[string]struct{} {
	return *t.alive.Load()
}

// IsAlive reports whether addr is currently believed reachable.
func (t *Tracker) IsAlive(addr string) bool {
	_, ok := t.Snapshot()[addr]
	return ok
}

// Tick pings every peer once, in parallel, and atomically replaces the
// alive-set with the result. Exported separately from Run so tests and
// startup reconciliation can force an immediate check without waiting for
// the ticker.
func (t *Tracker) Tick() {
	next := make(map[string]struct{}, len(t.peers)+1)
	next[t.self] = struct{}{}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, addr := range t.peers {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if t.client.Ping(addr) {
				mu.Lock()
				next[addr] = struct{}{}
				mu.Unlock()
			}
		}(addr)
	}
	wg.Wait()

	t.alive.Store(&next)
}

// Run ticks every PingInterval until stop is closed. It never blocks
// request handling — it runs entirely in its own goroutine, started by
// the caller.
func (t *Tracker) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}
