package solver_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvdirect/comm"
	"github.com/katalvlaran/lvdirect/distmat"
	"github.com/katalvlaran/lvdirect/solver"
)

// Example solves tridiag(-1, 2, -1)·x = 1 with the rows split over two
// ranks and prints the gathered solution on the coordinator.
func Example() {
	err := comm.Run(context.Background(), 2, func(ctx context.Context, c comm.Communicator) error {
		l, err := distmat.NewUniformLayout(ctx, c, 4)
		if err != nil {
			return err
		}
		a, err := distmat.NewTridiagonal(ctx, l, 2, -1)
		if err != nil {
			return err
		}
		x, err := distmat.NewMultiVector(l, 1)
		if err != nil {
			return err
		}
		b, err := distmat.NewMultiVector(l, 1)
		if err != nil {
			return err
		}
		b.PutScalar(1)

		s, err := solver.New(ctx, distmat.NewLinearProblem(a, x, b))
		if err != nil {
			return err
		}
		if err = s.Solve(ctx); err != nil {
			return err
		}
		full, err := x.GatherGlobal(ctx)
		if err != nil {
			return err
		}
		if comm.IsCoordinator(c) {
			fmt.Printf("x = %.6g\n", full[0])
		}

		return s.Close(ctx)
	})
	if err != nil {
		fmt.Println(err)
	}
	// Output: x = [2 3 3 2]
}
