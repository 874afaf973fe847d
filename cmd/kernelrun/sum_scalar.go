package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/host"
	"github.com/datatalking/mldb/queue"
)

func newSumScalarCmd() *cobra.Command {
	var a, b uint
	cmd := &cobra.Command{
		Use:   "sum-scalar",
		Short: "Run the sum_scalar demo kernel: out[0] = a + b (a 0D grid)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := newContext()
			spec, err := ctx.BuildKernel("sum_scalar")
			if err != nil {
				return err
			}
			entry, ok := host.EntryFor(spec.Entry.Name)
			if !ok {
				return fmt.Errorf("kernelrun: no entry point registered for %q", spec.Entry.Name)
			}

			out := make([]uint32, 1)
			args2 := []mldb.ArgumentHandler{host.U32(uint32(a)), host.U32(uint32(b)), host.MutU32s(out)}
			bound, err := mldb.NewBinder().Bind(spec, args2, nil, entry)
			if err != nil {
				return err
			}
			defer mldb.ReleaseAll(bound.Pins)

			q := host.NewQueue(ctx)
			ev, err := q.Submit(queue.Submission{OpName: "sum_scalar", Bound: bound})
			if err != nil {
				return err
			}
			if err := ev.Await(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out[0])
			return nil
		},
	}
	cmd.Flags().UintVar(&a, "a", 3, "first operand")
	cmd.Flags().UintVar(&b, "b", 4, "second operand")
	return cmd
}
