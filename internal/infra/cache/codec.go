// Package cache holds the analysis.Cache backends.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
	"github.com/bryanwahyu/unitecon/internal/infra/ai/parser"
)

var errInvalidPayload = errors.New("stored analysis fails schema check")

func encode(r analysis.Result) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis: %w", err)
	}
	return b, nil
}

// decode re-validates the stored payload; anything that is not a valid
// analysis is reported as errInvalidPayload so callers treat it as a miss.
func decode(b []byte) (analysis.Result, error) {
	r, err := parser.DecodeResult(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	if !r.Valid() {
		return nil, errInvalidPayload
	}
	return r, nil
}
