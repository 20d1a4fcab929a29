// cmd/kvadmin is a thin operator probe: it sends one raw wire command to
// one named node and prints the decoded response. It performs no
// placement resolution and no primary/replica fallback — unlike the
// cluster's own request server, it talks to exactly the address given.
//
// Usage:
//
//	kvadmin ping 127.0.0.1:5000
//	kvadmin get 127.0.0.1:5000 mykey
//	kvadmin put 127.0.0.1:5000 mykey "hello world"
//	kvadmin delete 127.0.0.1:5000 mykey
//	kvadmin snapshot 127.0.0.1:5000
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DamPhong1311/phantan/internal/peer"
	"github.com/DamPhong1311/phantan/internal/wire"
)

func main() {
	root := &cobra.Command{
		Use:   "kvadmin",
		Short: "Send one raw wire command to one cluster node",
	}

	root.AddCommand(
		rawCmd("ping <addr>", cobra.ExactArgs(1), wire.CmdPing, 0),
		rawCmd("get <addr> <key>", cobra.ExactArgs(2), wire.CmdGet, 1),
		rawCmd("delete <addr> <key>", cobra.ExactArgs(2), wire.CmdDelete, 1),
		rawCmd("snapshot <addr>", cobra.ExactArgs(1), wire.CmdSnapshot, 0),
		putCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rawCmd builds a cobra command that sends a fixed wire.Command with an
// optional key argument and prints the response.
func rawCmd(use string, args cobra.PositionalArgs, cmd wire.Command, keyArgIdx int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Send a %s to one node", cmd),
		Args:  args,
		RunE: func(c *cobra.Command, argv []string) error {
			req := wire.Request{Cmd: cmd}
			if keyArgIdx > 0 {
				req.Key = argv[keyArgIdx]
			}
			return callAndPrint(argv[0], req)
		},
	}
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <addr> <key> <value>",
		Short: "Send a PUT to one node",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, argv []string) error {
			value := argv[2]
			return callAndPrint(argv[0], wire.Request{Cmd: wire.CmdPut, Key: argv[1], Value: &value})
		},
	}
}

func callAndPrint(addr string, req wire.Request) error {
	client := peer.New()
	resp, err := client.Call(addr, req)
	if err != nil {
		return fmt.Errorf("kvadmin: %w", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("kvadmin: encode response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
