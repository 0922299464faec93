package sweep

import "context"

// Sweeper marks every roster member without a record as absent for a day.
type Sweeper interface {
	Sweep(ctx context.Context, req SweepRequest) (SweepResult, error)
}
