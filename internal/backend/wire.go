package backend

import (
	"fmt"

	"github.com/ramili4/ml-ci-pipeline/internal/mapsafe"
)

// DecodeResult converts a decoded answer payload into a Response.
// answer, score, start and end must all be present.
func DecodeResult(m map[string]any) (*Response, error) {
	for _, key := range []string{"answer", "score", "start", "end"} {
		if !mapsafe.Has(m, key) {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformedResponse, key)
		}
	}

	resp := &Response{
		Answer: mapsafe.Get(m, "answer", ""),
		Score:  mapsafe.Get(m, "score", -1.0),
		Start:  mapsafe.Get(m, "start", -1),
		End:    mapsafe.Get(m, "end", -1),
	}

	if resp.Score < 0 || resp.Start < 0 || resp.End < resp.Start {
		return nil, fmt.Errorf("%w: score=%v start=%d end=%d", ErrMalformedResponse, m["score"], resp.Start, resp.End)
	}

	return resp, nil
}
