// cmd/kvnode is the entrypoint for a single cluster member.
//
// Its startup surface is deliberately narrow: it reads one integer — its
// own port on loopback — from standard input, resolves the fixed cluster
// member list (compiled-in default, or PHANTAN_NODES for larger test
// clusters), loads whatever snapshot it finds on disk, reconciles against
// whichever peers answer, and only then starts accepting connections.
//
// Example — three nodes in three terminals:
//
//	echo 5000 | ./kvnode
//	echo 5001 | ./kvnode
//	echo 5002 | ./kvnode
package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/DamPhong1311/phantan/internal/node"
	"github.com/DamPhong1311/phantan/internal/server"
)

// defaultNodes is the fixed three-node cluster the node runtime assumes
// unless PHANTAN_NODES overrides it.
var defaultNodes = []string{"127.0.0.1:5000", "127.0.0.1:5001", "127.0.0.1:5002"}

func main() {
	port, err := readPort(os.Stdin)
	if err != nil {
		log.Fatalf("kvnode: %v", err)
	}
	self := fmt.Sprintf("127.0.0.1:%d", port)

	nodes := defaultNodes
	if env := os.Getenv("PHANTAN_NODES"); env != "" {
		nodes = strings.Split(env, ",")
	}

	dataDir := os.Getenv("PHANTAN_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}

	n, err := node.New(self, nodes, dataDir)
	if err != nil {
		log.Fatalf("kvnode: %v", err)
	}

	if err := n.Store.Load(n.SnapshotPath(), n.Logger); err != nil {
		log.Fatalf("kvnode: load snapshot: %v", err)
	}

	n.Logger.Printf("reconciling against %d peer(s) before accepting connections", len(n.Peers()))
	n.Reconcile()

	ln, err := net.Listen("tcp", self)
	if err != nil {
		log.Fatalf("kvnode: listen %s: %v", self, err)
	}

	stop := make(chan struct{})
	go n.Tracker.Run(stop)
	go n.Store.RunFlushLoop(n.SnapshotPath(), n.Logger, stop)

	srv := server.New(n)
	go func() {
		n.Logger.Printf("listening on %s (cluster: %v)", self, nodes)
		if err := srv.Serve(ln); err != nil {
			n.Logger.Printf("accept loop exited: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	n.Logger.Printf("shutting down")
	close(stop)
	ln.Close()
	if err := n.Store.Flush(n.SnapshotPath()); err != nil {
		n.Logger.Printf("final snapshot flush failed: %v", err)
	}
}

// readPort reads the single integer port from r, tolerating surrounding
// whitespace.
func readPort(r *os.File) (int, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, fmt.Errorf("read port: %w", err)
		}
		return 0, fmt.Errorf("read port: no input on stdin")
	}
	line := strings.TrimSpace(scanner.Text())
	port, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("read port: %q is not an integer: %w", line, err)
	}
	return port, nil
}
