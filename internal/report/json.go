package report

import (
	"encoding/json"
	"io"

	"github.com/varalys/pipescan/internal/aggregate"
	"github.com/varalys/pipescan/internal/policy"
)

// JSONFormatter writes the aggregate result and verdict as one document.
// Secret values are masked.
type JSONFormatter struct{}

type jsonReport struct {
	Version string `json:"version,omitempty"`
	aggregate.Result
	Verdict *policy.Verdict `json:"verdict,omitempty"`
}

func (JSONFormatter) Format(w io.Writer, in Input) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Version: in.Version, Result: maskSecrets(in.Result), Verdict: in.Verdict})
}
