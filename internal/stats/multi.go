package stats

import (
	"context"
	"errors"
)

type multi []Recorder

// Multi fans each event out to every non-nil recorder and joins their
// errors.
func Multi(recs ...Recorder) Recorder {
	out := make(multi, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
