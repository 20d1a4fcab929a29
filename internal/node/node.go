// Package node assembles a single cluster member: its identity, its view
// of the fixed member list, its store, its peer client, and its liveness
// tracker. The mutation mutex itself lives one level down, inside
// internal/store, but every other piece of per-node state is collected
// here and handed to the request server.
package node

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/DamPhong1311/phantan/internal/liveness"
	"github.com/DamPhong1311/phantan/internal/peer"
	"github.com/DamPhong1311/phantan/internal/ring"
	"github.com/DamPhong1311/phantan/internal/store"
)

// Node holds everything a single cluster member needs to serve requests,
// replicate, persist, and reconcile.
type Node struct {
	Self    string   // this node's own "host:port"
	Nodes   []string // the fixed, ordered cluster member list; Self is one element
	DataDir string

	Store      *store.Store
	PeerClient *peer.Client
	Tracker    *liveness.Tracker
	Logger     *log.Logger
}

// New constructs a Node. self must appear in nodes.
func New(self string, nodes []string, dataDir string) (*Node, error) {
	found := false
	for _, n := range nodes {
		if n == self {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("node: self %q is not a member of %v", self, nodes)
	}

	n := &Node{
		Self:       self,
		Nodes:      nodes,
		DataDir:    dataDir,
		Store:      store.New(),
		PeerClient: peer.New(),
		Logger:     log.New(os.Stderr, fmt.Sprintf("[%s] ", self), log.LstdFlags),
	}
	n.Tracker = liveness.New(self, n.Peers(), n.PeerClient)
	return n, nil
}

// Peers returns every cluster member except self, in NODES order.
func (n *Node) Peers() []string {
	peers := make([]string, 0, len(n.Nodes)-1)
	for _, addr := range n.Nodes {
		if addr != n.Self {
			peers = append(peers, addr)
		}
	}
	return peers
}

// Primary returns the node responsible for key.
func (n *Node) Primary(key string) string {
	return ring.Primary(key, n.Nodes)
}

// Replica returns the node holding key's single redundant copy.
func (n *Node) Replica(key string) string {
	return ring.Replica(key, n.Nodes)
}

// SnapshotPath is this node's on-disk snapshot file.
func (n *Node) SnapshotPath() string {
	host, port := splitHostPort(n.Self)
	_ = host
	return store.SnapshotPath(n.DataDir, port)
}

// splitHostPort parses "host:port" into host and an integer port. It
// panics on malformed input. New checks only that Self is a member of
// Nodes, not its format; every caller controls its own format.
func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		panic(fmt.Sprintf("node: malformed address %q: %v", addr, err))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		panic(fmt.Sprintf("node: malformed address %q: %v", addr, err))
	}
	return host, port
}
