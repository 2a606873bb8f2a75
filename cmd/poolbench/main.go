// Command poolbench stress-tests the lendpool byte-buffer pool and reports
// throughput, recycling efficiency and resource usage.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "poolbench",
		Short: "poolbench - stress and benchmark the lendpool buffer pool",
		Long: `poolbench drives a lendpool byte-buffer pool from many goroutines at once.
Buffers are lent, filled, optionally compressed, frozen and released either
locally or on another goroutine, and every payload is checked on the way out.`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "poolbench v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newRunCommand())
	root.AddCommand(newConfigCommand())

	return root
}
