package node

import (
	"github.com/DamPhong1311/phantan/internal/wire"
)

// Reconcile runs once at startup, after the on-disk snapshot has been
// loaded and before the request server begins accepting connections. It
// pulls a SNAPSHOT from every peer this node currently believes is alive,
// and installs the entries it owns or replicates.
//
// Peers are contacted in NODES order (excluding self) — the same order
// used to resolve conflicts when more than one peer reports a value for
// the same key, since no versioning exists to do better than
// last-writer-wins by iteration order. A later peer in that order wins
// over an earlier one for the same key.
func (n *Node) Reconcile() {
	wasEmpty := n.Store.PrimaryLen() == 0

	snapshots := n.fetchPeerSnapshots()

	if wasEmpty {
		n.recoverFromScratch(snapshots)
	} else {
		n.mergeFromPeers(snapshots)
	}

	if err := n.Store.Flush(n.SnapshotPath()); err != nil {
		n.Logger.Printf("reconcile: persist after reconciliation failed: %v", err)
	}
}

// fetchPeerSnapshots contacts every peer believed alive and returns its
// merged primary∪replica dump. A peer that fails to respond is logged and
// skipped — partial reconciliation is accepted.
func (n *Node) fetchPeerSnapshots() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, addr := range n.Peers() {
		if !n.Tracker.IsAlive(addr) {
			continue
		}
		resp, err := n.PeerClient.Call(addr, wire.Request{Cmd: wire.CmdSnapshot})
		if err != nil {
			n.Logger.Printf("reconcile: snapshot from %s failed: %v", addr, err)
			continue
		}
		out[addr] = fieldsToMap(resp.Fields)
	}
	return out
}

// mergeFromPeers installs (k, v) pairs this node owns or replicates,
// skipping anything already present with the same value. This is the
// steady-state reconciliation path: this node's own maps are left alone
// except where a peer disagrees.
func (n *Node) mergeFromPeers(snapshots map[string]map[string]string) {
	for _, addr := range n.Peers() {
		merged, ok := snapshots[addr]
		if !ok {
			continue
		}
		for k, v := range merged {
			n.installIfOwned(k, v)
		}
	}
}

// recoverFromScratch is the initial recovery pass used when this node's
// primary map was empty after loading its on-disk snapshot: both maps are
// rebuilt strictly from what peers report, discarding any stale local
// replica entries that don't belong here, and every recovered primary
// entry is pushed to its live replica.
func (n *Node) recoverFromScratch(snapshots map[string]map[string]string) {
	n.Store.Reset()
	n.mergeFromPeers(snapshots)

	for k, v := range n.Store.Merged() {
		if n.Primary(k) != n.Self {
			continue
		}
		replica := n.Replica(k)
		if replica == n.Self || !n.Tracker.IsAlive(replica) {
			continue
		}
		value := v
		_, err := n.PeerClient.Call(replica, wire.Request{
			Cmd:   wire.CmdPutReplica,
			Key:   k,
			Value: &value,
		})
		if err != nil {
			n.Logger.Printf("reconcile: push recovered key %q to replica %s failed: %v", k, replica, err)
		}
	}
}

// installIfOwned installs (key, value) into whichever local map this node
// should hold it in, if any, and only if the value actually differs from
// what's already there (including the key being entirely absent).
func (n *Node) installIfOwned(key, value string) {
	switch {
	case n.Primary(key) == n.Self:
		if cur, ok := n.Store.GetPrimary(key); !ok || cur != value {
			n.Store.PutPrimary(key, value)
		}
	case n.Replica(key) == n.Self:
		if cur, ok := n.Store.GetReplica(key); !ok || cur != value {
			n.Store.PutReplica(key, value)
		}
	default:
		// Not ours — ignore.
	}
}

// fieldsToMap converts a wire.Response's flat Fields (string -> *string,
// where nil means JSON null) into a plain map, dropping null entries: a
// SNAPSHOT response never emits nulls (every key it returns exists), but
// this keeps the conversion safe if it ever did.
func fieldsToMap(fields map[string]*string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}
