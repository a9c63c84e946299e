// Package cmdstan drives a compiled CmdStan model: it writes the data
// file, runs one sampler process per chain and reads the draws back.
package cmdstan

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/robert-malhotra/go-stanload/param"
)

// EncodeData renders m as a CmdStan JSON data document. Stan data is
// numeric, so string values are left out and reported in skipped.
// Non-finite floats are written as the strings CmdStan accepts.
func EncodeData(m param.Map) (doc []byte, skipped []string, err error) {
	out := make(map[string]any, len(m))
	for _, key := range m.Keys() {
		v, ok := jsonValue(m[key])
		if !ok {
			skipped = append(skipped, key)
			continue
		}
		out[key] = v
	}
	doc, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding data: %w", err)
	}
	return doc, skipped, nil
}

// WriteData writes m to path as CmdStan JSON.
func WriteData(path string, m param.Map) (skipped []string, err error) {
	doc, skipped, err := EncodeData(m)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return nil, fmt.Errorf("writing data file: %w", err)
	}
	return skipped, nil
}

func jsonValue(v any) (any, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN", true
		case math.IsInf(x, 1):
			return "Inf", true
		case math.IsInf(x, -1):
			return "-Inf", true
		}
		return x, true
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			ev, ok := jsonValue(e)
			if !ok {
				return nil, false
			}
			out[i] = ev
		}
		return out, true
	}
	return nil, false
}
