// SPDX-License-Identifier: MIT

// Package comm provides the collective-communication layer used by the
// distributed matrix and solver packages.
//
// What & Why:
//
//	Every process ("rank") of an SPMD program holds one Communicator. All
//	operations are blocking collectives: each rank must call the same
//	collective in the same order, and a call returns only once every rank
//	has contributed. Rank 0 is the coordinator by convention.
//
//	The package ships an in-process World in which each rank is a goroutine.
//	It is the transport used by tests, examples and the lvdirect CLI; any
//	other transport only has to satisfy the Communicator interface.
//
// Determinism:
//
//	Collectives are exchanged in rounds. Contributions are ordered by rank,
//	so Gather/AllGather results are reproducible regardless of scheduling.
//
// Cancellation:
//
//	Every collective takes a context.Context. A cancelled rank returns
//	ctx.Err() and leaves its round incomplete; the World must then be
//	discarded. Run wires this up through an errgroup so the first failing
//	rank unblocks the others.
//
// Payloads:
//
//	Values passed through a collective are shared between goroutines, not
//	copied. Receivers treat them as read-only; the typed helpers in
//	collectives.go copy slices before returning them.
//
// Quick example:
//
//	err := comm.Run(ctx, 4, func(ctx context.Context, c comm.Communicator) error {
//	    sum, err := comm.AllReduceSum(ctx, c, float64(c.Rank()))
//	    if err != nil {
//	        return err
//	    }
//	    _ = sum // 0+1+2+3 on every rank
//	    return nil
//	})
package comm
