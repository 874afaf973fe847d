package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/host"
	"github.com/datatalking/mldb/queue"
)

func newAdd2Cmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "add2",
		Short: "Run the add2 demo kernel: out[i] = a[i] + b[i]",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := newContext()
			spec, err := ctx.BuildKernel("add2")
			if err != nil {
				return err
			}
			entry, ok := host.EntryFor(spec.Entry.Name)
			if !ok {
				return fmt.Errorf("kernelrun: no entry point registered for %q", spec.Entry.Name)
			}

			a := make([]float32, n)
			b := make([]float32, n)
			out := make([]float32, n)
			for i := range a {
				a[i] = float32(i)
				b[i] = float32(2 * i)
			}

			args2 := []mldb.ArgumentHandler{host.ConstF32s(a), host.ConstF32s(b), host.MutF32s(out)}
			bound, err := mldb.NewBinder().Bind(spec, args2, map[string]int64{"count": int64(n), "block": 1}, entry)
			if err != nil {
				return err
			}
			defer mldb.ReleaseAll(bound.Pins)

			q := host.NewQueue(ctx)
			ev, err := q.Submit(queue.Submission{OpName: "add2", Bound: bound, Grid: []uint64{uint64(n)}})
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
	return cmd
}
