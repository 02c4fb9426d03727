package audit

import (
	"context"
	"errors"
)

// Fanout appends every event to each store in order. All stores are tried;
// failures are joined.
type Fanout []Store

func (f Fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
