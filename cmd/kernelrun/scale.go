package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/host"
	"github.com/datatalking/mldb/queue"
)

func newScaleCmd() *cobra.Command {
	var n int
	var factor float64
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Run the scale demo kernel: out[i] = in[i] * factor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := newContext()
			spec, err := ctx.BuildKernel("scale")
			if err != nil {
				return err
			}
			entry, ok := host.EntryFor(spec.Entry.Name)
			if !ok {
				return fmt.Errorf("kernelrun: no entry point registered for %q", spec.Entry.Name)
			}

			in := make([]float32, n)
			out := make([]float32, n)
			for i := range in {
				in[i] = float32(i + 1)
			}

			args2 := []mldb.ArgumentHandler{host.ConstF32s(in), host.MutF32s(out), host.F32(float32(factor))}
			bound, err := mldb.NewBinder().Bind(spec, args2, map[string]int64{"count": int64(n), "block": 1}, entry)
			if err != nil {
				return err
			}
			defer mldb.ReleaseAll(bound.Pins)

			q := host.NewQueue(ctx)
			ev, err := q.Submit(queue.Submission{OpName: "scale", Bound: bound, Grid: []uint64{uint64(n)}})
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
	cmd.Flags().IntVar(&n, "n", 8, "element count")
	cmd.Flags().Float64Var(&factor, "factor", 2, "scale factor")
	return cmd
}
