package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunvim/starkos/pkg/replay"
)

func main() {
	root := &cobra.Command{
		Use:   "starkos",
		Short: "Starknet OS syscall replay tooling",
	}

	root.AddCommand(replay.GetCommand())

	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
