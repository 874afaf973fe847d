package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/host"
	"github.com/datatalking/mldb/queue"
)

func newZeroCmd() *cobra.Command {
	var n int
	var block int64
	cmd := &cobra.Command{
		Use:   "zero",
		Short: "Run the zero demo kernel, exercising grid padding",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := newContext()
			spec, err := ctx.BuildKernel("zero")
			if err != nil {
				return err
			}
			entry, ok := host.EntryFor(spec.Entry.Name)
			if !ok {
				return fmt.Errorf("kernelrun: no entry point registered for %q", spec.Entry.Name)
			}

			out := make([]float32, n)
			for i := range out {
				out[i] = float32(i + 1)
			}

			args2 := []mldb.ArgumentHandler{host.MutF32s(out)}
			bound, err := mldb.NewBinder().Bind(spec, args2, map[string]int64{"count": int64(n), "block": block}, entry)
			if err != nil {
				return err
			}
			defer mldb.ReleaseAll(bound.Pins)

			q := host.NewQueue(ctx)
			ev, err := q.Submit(queue.Submission{OpName: "zero", Bound: bound, Grid: []uint64{uint64(n)}})
			if err != nil {
				return err
			}
			if err := ev.Await(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 10, "element count")
	cmd.Flags().Int64Var(&block, "block", 8, "block size, intentionally not a divisor of n by default")
	return cmd
}
