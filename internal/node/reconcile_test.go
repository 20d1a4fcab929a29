package node

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DamPhong1311/phantan/internal/ring"
	"github.com/DamPhong1311/phantan/internal/wire"
)

// fakePeer is a minimal stand-in for a real node: it answers PING with
// ALIVE, SNAPSHOT with a fixed map, and records every PUT_REPLICA it
// receives.
type fakePeer struct {
	mu         sync.Mutex
	snapshot   map[string]string
	putReplica []wire.Request
}

// startFakePeerNodeAt binds addr and serves PING/SNAPSHOT/PUT_REPLICA
// against snapshot, recording any PUT_REPLICA requests it receives.
func startFakePeerNodeAt(t *testing.T, addr string, snapshot map[string]string) *fakePeer {
	fp := &fakePeer{snapshot: snapshot}
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				var req wire.Request
				if wire.ReadMessage(conn, &req) != nil {
					return
				}
				switch req.Cmd {
				case wire.CmdPing:
					_ = wire.WriteMessage(conn, wire.StatusResponse(wire.StatusAlive))
				case wire.CmdSnapshot:
					fp.mu.Lock()
					resp := wire.SnapshotResponse(fp.snapshot)
					fp.mu.Unlock()
					_ = wire.WriteMessage(conn, resp)
				case wire.CmdPutReplica:
					fp.mu.Lock()
					fp.putReplica = append(fp.putReplica, req)
					fp.mu.Unlock()
					_ = wire.WriteMessage(conn, wire.StatusResponse(wire.StatusReplicaOK))
				}
			}()
		}
	}()
	return fp
}

func (fp *fakePeer) received() []wire.Request {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	out := make([]wire.Request, len(fp.putReplica))
	copy(out, fp.putReplica)
	return out
}

func TestReconcileMergesOwnedKeysFromPeers(t *testing.T) {
	peerA := "127.0.0.1:19101"
	peerB := "127.0.0.1:19102"
	self := "127.0.0.1:19103"
	nodes := []string{peerA, peerB, self}

	var primaryKey, replicaKey, notMineKey string
	for i := 0; i < 100000; i++ {
		k := keyAt(i)
		if ring.Primary(k, nodes) == self && primaryKey == "" {
			primaryKey = k
		}
		if ring.Replica(k, nodes) == self && ring.Primary(k, nodes) != self && replicaKey == "" {
			replicaKey = k
		}
		if ring.Primary(k, nodes) != self && ring.Replica(k, nodes) != self && notMineKey == "" {
			notMineKey = k
		}
		if primaryKey != "" && replicaKey != "" && notMineKey != "" {
			break
		}
	}
	require.NotEmpty(t, primaryKey)
	require.NotEmpty(t, replicaKey)
	require.NotEmpty(t, notMineKey)

	peerSnapshot := map[string]string{
		primaryKey: "owned-by-self",
		replicaKey: "replicated-by-self",
		notMineKey: "ignored",
	}
	startFakePeerNodeAt(t, peerA, peerSnapshot)
	startFakePeerNodeAt(t, peerB, nil)

	n, err := New(self, nodes, t.TempDir())
	require.NoError(t, err)
	n.Tracker.Tick() // discover the two fake peers are alive

	n.Reconcile()

	v, ok := n.Store.GetPrimary(primaryKey)
	require.True(t, ok)
	assert.Equal(t, "owned-by-self", v)

	v, ok = n.Store.GetReplica(replicaKey)
	require.True(t, ok)
	assert.Equal(t, "replicated-by-self", v)

	_, ok = n.Store.Get(notMineKey)
	assert.False(t, ok, "keys not owned or replicated by this node must be ignored")
}

func TestReconcileRecoversFromScratchAndPushesToReplica(t *testing.T) {
	peerA := "127.0.0.1:19201"
	peerB := "127.0.0.1:19202"
	self := "127.0.0.1:19203"
	nodes := []string{peerA, peerB, self}

	var primaryKey string
	var replicaOfPrimaryKey string
	for i := 0; i < 100000; i++ {
		k := keyAt(i)
		if ring.Primary(k, nodes) == self {
			primaryKey = k
			replicaOfPrimaryKey = ring.Replica(k, nodes)
			break
		}
	}
	require.NotEmpty(t, primaryKey)
	require.NotEqual(t, self, replicaOfPrimaryKey)

	fpA := startFakePeerNodeAt(t, peerA, map[string]string{primaryKey: "recovered-value"})
	fpReplica := startFakePeerNodeAt(t, peerB, nil)
	// peerB plays the role of whichever node is actually primaryKey's replica
	// only when replicaOfPrimaryKey == peerB; otherwise assert against the
	// correct fake.
	targetReplicaFake := fpA
	if replicaOfPrimaryKey == peerB {
		targetReplicaFake = fpReplica
	}

	n, err := New(self, nodes, t.TempDir())
	require.NoError(t, err)
	// A stale, locally held replica entry that no longer belongs here must
	// be discarded by the from-scratch recovery.
	n.Store.PutReplica("stale-leftover", "garbage")
	n.Tracker.Tick()

	require.Equal(t, 0, n.Store.PrimaryLen(), "precondition: primary map must be empty to trigger recovery")
	n.Reconcile()

	v, ok := n.Store.GetPrimary(primaryKey)
	require.True(t, ok)
	assert.Equal(t, "recovered-value", v)

	_, ok = n.Store.GetReplica("stale-leftover")
	assert.False(t, ok, "stale local replica entries must be discarded during from-scratch recovery")

	if targetReplicaFake != nil {
		received := targetReplicaFake.received()
		require.Len(t, received, 1)
		assert.Equal(t, primaryKey, received[0].Key)
		require.NotNil(t, received[0].Value)
		assert.Equal(t, "recovered-value", *received[0].Value)
	}
}

// keyAt deterministically derives the i-th probe key.
func keyAt(i int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	s := make([]byte, 0, 8)
	for i > 0 || len(s) == 0 {
		s = append(s, charset[i%len(charset)])
		i /= len(charset)
	}
	return "probe-" + string(s)
}
