// Command kernelrun is a small demonstration harness for the host
// back-end: it runs the sum_scalar, add2, scale, and zero demo kernels
// end to end and prints their results, and lists every kernel the host
// back-end has registered.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/datatalking/mldb/host"
	"github.com/datatalking/mldb/registry"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kernelrun",
		Short: "Run demo kernels against the host dispatch back-end",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newListCmd(), newSumScalarCmd(), newAdd2Cmd(), newScaleCmd(), newZeroCmd())
	return root
}

func newContext() *host.Context {
	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return host.NewContext(host.WithLogger(logger), host.WithWorkers(4), host.WithProfiling())
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List kernels registered for the host backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range registry.Default.Kernels(host.BackendName) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
