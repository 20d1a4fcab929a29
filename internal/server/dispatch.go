package server

import (
	"github.com/DamPhong1311/phantan/internal/wire"
)

// handlePut dispatches a PUT: primary path, forward, or replica fallback,
// depending on where the primary of req.Key is and whether it's
// reachable.
func (s *Server) handlePut(req wire.Request) wire.Response {
	if req.Value == nil {
		return wire.StatusResponse(wire.StatusMissingValue)
	}

	key, value := req.Key, *req.Value
	primary := s.n.Primary(key)
	replica := s.n.Replica(key)

	switch {
	case primary == s.n.Self:
		s.n.Store.PutPrimary(key, value)
		s.replicateBestEffort(replica, key, value)
		return wire.StatusResponse(wire.StatusOK)

	case s.n.Tracker.IsAlive(primary):
		resp, err := s.n.PeerClient.Call(primary, req)
		if err != nil {
			return wire.ErrorResponse(err.Error())
		}
		return resp

	case replica == s.n.Self:
		s.n.Store.PutReplica(key, value)
		return wire.StatusResponse(wire.StatusReplicaPut)

	default:
		return wire.ErrorResponse("primary unreachable")
	}
}

// handleGet dispatches a GET the same way handlePut dispatches a PUT.
func (s *Server) handleGet(req wire.Request) wire.Response {
	key := req.Key
	primary := s.n.Primary(key)
	replica := s.n.Replica(key)

	switch {
	case primary == s.n.Self:
		if v, ok := s.n.Store.GetPrimary(key); ok {
			return wire.ValueResponse(key, &v)
		}
		if v, ok := s.n.Store.GetReplica(key); ok {
			return wire.ValueResponse(key, &v)
		}
		return wire.ValueResponse(key, nil)

	case s.n.Tracker.IsAlive(primary):
		resp, err := s.n.PeerClient.Call(primary, req)
		if err != nil {
			return wire.ErrorResponse(err.Error())
		}
		return resp

	case replica == s.n.Self:
		if v, ok := s.n.Store.GetReplica(key); ok {
			return wire.ValueResponse(key, &v)
		}
		return wire.ValueResponse(key, nil)

	default:
		return wire.ErrorResponse("primary unreachable")
	}
}

// handleDelete dispatches a DELETE the same way handlePut dispatches a PUT.
func (s *Server) handleDelete(req wire.Request) wire.Response {
	key := req.Key
	primary := s.n.Primary(key)
	replica := s.n.Replica(key)

	switch {
	case primary == s.n.Self:
		s.n.Store.DeletePrimary(key)
		s.replicateDeleteBestEffort(replica, key)
		return wire.StatusResponse(wire.StatusDeleted)

	case s.n.Tracker.IsAlive(primary):
		resp, err := s.n.PeerClient.Call(primary, req)
		if err != nil {
			return wire.ErrorResponse(err.Error())
		}
		return resp

	case replica == s.n.Self:
		s.n.Store.DeleteReplica(key)
		return wire.StatusResponse(wire.StatusReplicaDeleted)

	default:
		return wire.ErrorResponse("primary unreachable")
	}
}

// handlePutReplica installs a value into the replica map unconditionally
// — the server trusts the caller (the authoritative primary) that this
// node is in fact the replica for the key.
func (s *Server) handlePutReplica(req wire.Request) wire.Response {
	if req.Value == nil {
		return wire.StatusResponse(wire.StatusMissingValue)
	}
	s.n.Store.PutReplica(req.Key, *req.Value)
	return wire.StatusResponse(wire.StatusReplicaOK)
}

// handleDeleteReplica removes a key from the replica map unconditionally.
func (s *Server) handleDeleteReplica(req wire.Request) wire.Response {
	s.n.Store.DeleteReplica(req.Key)
	return wire.StatusResponse(wire.StatusReplicaDeleted)
}

// replicateBestEffort sends PUT_REPLICA to replica, unless replica is this
// node or not currently believed alive. It does not hold the store mutex
// while making the network call: key and value are plain strings passed
// by the caller, not map references, and the store mutex was released
// the moment PutPrimary returned. A replication failure is logged but
// never fails the client's write.
func (s *Server) replicateBestEffort(replica, key, value string) {
	if replica == s.n.Self || !s.n.Tracker.IsAlive(replica) {
		return
	}
	v := value
	_, err := s.n.PeerClient.Call(replica, wire.Request{
		Cmd:   wire.CmdPutReplica,
		Key:   key,
		Value: &v,
	})
	if err != nil {
		s.n.Logger.Printf("replicate PUT %q to %s failed: %v", key, replica, err)
	}
}

// replicateDeleteBestEffort mirrors replicateBestEffort for deletes.
func (s *Server) replicateDeleteBestEffort(replica, key string) {
	if replica == s.n.Self || !s.n.Tracker.IsAlive(replica) {
		return
	}
	_, err := s.n.PeerClient.Call(replica, wire.Request{
		Cmd: wire.CmdDeleteReplica,
		Key: key,
	})
	if err != nil {
		s.n.Logger.Printf("replicate DELETE %q to %s failed: %v", key, replica, err)
	}
}
