// Package ring implements the key placement function shared by every node:
// given the fixed, ordered list of cluster members, which node is the
// primary (authoritative) holder of a key, and which is its single
// replica.
//
// Unlike the virtual-node consistent-hash ring this package's ancestor
// used (100-200 positions per physical node, for smooth rebalancing as
// members come and go), this cluster's membership is fixed at boot:
// dynamic membership changes and rebalancing are out of scope. There is
// nothing to rebalance, so there is no ring in the geometric sense, just
// a deterministic index into NODES. The name is kept because the
// underlying idea — hash the key, reduce mod N, everyone agrees — is the
// same one a virtual-node ring builds on.
package ring

import (
	"crypto/sha256"
	"math/big"
)

// Primary returns the node responsible for authoritatively storing key,
// given the fixed, ordered member list nodes. nodes must be identical
// (same order) on every node in the cluster for this to agree cluster-wide.
func Primary(key string, nodes []string) string {
	return nodes[index(key, len(nodes))]
}

// Replica returns the node that holds the single redundant copy of key —
// the next node clockwise from the primary. When len(nodes) == 1, Replica
// equals Primary and replication is a no-op.
func Replica(key string, nodes []string) string {
	i := index(key, len(nodes))
	return nodes[(i+1)%len(nodes)]
}

// index hashes key with SHA-256, interprets the digest as a big-endian
// unsigned integer, and reduces it modulo n.
func index(key string, n int) int {
	sum := sha256.Sum256([]byte(key))
	h := new(big.Int).SetBytes(sum[:])
	mod := big.NewInt(int64(n))
	return int(new(big.Int).Mod(h, mod).Int64())
}
