package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/itinera/itinera/internal/conditions"
)

// conditionFanOut bounds concurrent condition lookups per request.
const conditionFanOut = 4

// fetchConditions looks up every request concurrently. Results are in
// request order. Degraded snapshots are reported as warnings.
func (e *Engine) fetchConditions(ctx context.Context, reqs []conditions.Request) ([]conditions.Snapshot, []Warning, error) {
	snaps := make([]conditions.Snapshot, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conditionFanOut)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snaps[i] = e.conditions.GetCondition(gctx, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	for i, snap := range snaps {
		if snap.Degraded {
			warnings = append(warnings, Warning{
				Kind:    WarningConditionFetchFailure,
				Subject: fmt.Sprintf("%s -> %s (%s)", reqs[i].Origin, reqs[i].Destination, reqs[i].Mode),
				Message: "conditions unavailable, assuming normal traffic",
			})
		}
	}
	return snaps, warnings, nil
}
