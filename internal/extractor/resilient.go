package extractor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Resilient tries Primary, then Fallback, and finally answers with an
// invalid verdict carrying RetryMessage. It never returns an error, so the
// conversation stays on the current step when extraction is unavailable.
type Resilient struct {
	Primary      Extractor
	Fallback     Extractor
	RetryMessage string
}

// Extract implements Extractor.
func (r *Resilient) Extract(ctx context.Context, req Request) (Verdict, error) {
	v, err := r.Primary.Extract(ctx, req)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, ErrUnsupportedStep) {
		return r.retry(), nil
	}
	log.Ctx(ctx).Warn().Err(err).Str("step", string(req.Step)).Msg("extractor primary failed")

	if r.Fallback != nil {
		v, ferr := r.Fallback.Extract(ctx, req)
		if ferr == nil {
			return v, nil
		}
		log.Ctx(ctx).Warn().Err(ferr).Str("step", string(req.Step)).Msg("extractor fallback failed")
	}
	return r.retry(), nil
}

func (r *Resilient) retry() Verdict {
	msg := r.RetryMessage
	if msg == "" {
		msg = DefaultRetryMessage
	}
	return Verdict{Message: msg}
}
