// Package server implements the request-handling state machine: one
// accept loop, one goroutine per connection, and the primary, forward,
// and fallback dispatch logic that is the heart of the node.
package server

import (
	"net"

	"github.com/google/uuid"

	"github.com/DamPhong1311/phantan/internal/node"
	"github.com/DamPhong1311/phantan/internal/wire"
)

// Server accepts connections on a listener and dispatches each one
// against a *node.Node.
type Server struct {
	n *node.Node
}

// New returns a Server bound to n.
func New(n *node.Node) *Server {
	return &Server{n: n}
}

// Serve runs the accept loop until ln is closed. Each accepted connection
// is handled in its own goroutine, so a slow or stuck client cannot stall
// the rest of the node.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn reads exactly one request, dispatches it, writes exactly one
// response, and closes the connection — the wire protocol is strictly
// one request/response pair per TCP connection.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()[:8]

	var req wire.Request
	if err := wire.ReadMessage(conn, &req); err != nil {
		s.n.Logger.Printf("conn %s: malformed request: %v", connID, err)
		s.reply(conn, connID, wire.ErrorResponse(err.Error()))
		return
	}

	resp := s.Dispatch(req)
	s.n.Logger.Printf("conn %s: %s %q -> %s", connID, req.Cmd, req.Key, resp.Status)
	s.reply(conn, connID, resp)
}

func (s *Server) reply(conn net.Conn, connID string, resp wire.Response) {
	if err := wire.WriteMessage(conn, resp); err != nil {
		s.n.Logger.Printf("conn %s: write response failed: %v", connID, err)
		return
	}
	_ = wire.CloseWrite(conn)
}

// Dispatch routes a single decoded request to the right handler and
// returns the response to send back. It holds no lock itself — every
// handler acquires the store's mutex only around its own map access.
func (s *Server) Dispatch(req wire.Request) wire.Response {
	switch req.Cmd {
	case "":
		return wire.ErrorResponse("missing cmd")
	case wire.CmdPing:
		return wire.StatusResponse(wire.StatusAlive)
	case wire.CmdSnapshot:
		return wire.SnapshotResponse(s.n.Store.Merged())
	case wire.CmdPut:
		return s.handlePut(req)
	case wire.CmdGet:
		return s.handleGet(req)
	case wire.CmdDelete:
		return s.handleDelete(req)
	case wire.CmdPutReplica:
		return s.handlePutReplica(req)
	case wire.CmdDeleteReplica:
		return s.handleDeleteReplica(req)
	default:
		return wire.StatusResponse(wire.StatusInvalidCmd)
	}
}
