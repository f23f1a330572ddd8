package txtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/beamwallet/negotiator/pkg/negotiate"
	"golang.org/x/sync/errgroup"
)

// Drive repeatedly calls Update(ctx, nil) on every role that hasn't
// reached a terminal state (Completed or Failed), concurrently within
// each round, for up to maxRounds rounds. Any message a role sends during its Update call is
// delivered synchronously by the Network straight into the
// recipient's own Update call, but that nested call only ever applies
// the message to the parameter store — it never advances past it. So
// each round makes the recipient's next fact available, and Drive's
// own repeated nil calls are what actually walk each side through its
// steps once those facts are on hand.
func Drive(ctx context.Context, maxRounds int, roles ...*negotiate.Role) error {
	for round := 0; round < maxRounds; round++ {
		allTerminal := true
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range roles {
			switch r.Status(ctx) {
			case negotiate.StatusCompleted, negotiate.StatusFailed:
				continue
			}
			allTerminal = false
			r := r
			g.Go(func() error {
				// A peer's concurrently-running Update in this same round
				// may cascade a message straight into r and carry it all
				// the way to a terminal state before r's own scheduled
				// call below actually runs (an applied TxFailed, or a
				// TxRegistered carrying a kernel proof, is enough). That is
				// not a failure, just this role finishing a step early.
				if err := r.Update(gctx, nil); err != nil && !errors.Is(err, negotiate.ErrAlreadyTerminal) {
					return fmt.Errorf("drive %s role: %w", r.Kind(), err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("txtest: %w", err)
		}
		if allTerminal {
			return nil
		}
	}
	return fmt.Errorf("txtest: drive did not reach a terminal state within %d rounds", maxRounds)
}
