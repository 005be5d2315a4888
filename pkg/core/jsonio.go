package core

import (
	"encoding/json"
	"io"
)

// MarshalResult pretty-prints an aggregate result as JSON.
func MarshalResult(w io.Writer, res AggregateResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// UnmarshalResult decodes an aggregate result, e.g. one written by
// `pipescan scan --format json`.
func UnmarshalResult(r io.Reader) (AggregateResult, error) {
	var res AggregateResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return AggregateResult{}, err
	}
	return res, nil
}
