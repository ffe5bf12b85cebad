package forecast

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadScalingArtifact reads training-time scaling parameters keyed by signal
// name, e.g. {"income": {"min": 0, "max": 5000}}.
func LoadScalingArtifact(path string) (map[string]ScalingParameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open scaling artifact: %v", ErrModelUnavailable, err)
	}
	defer f.Close()

	var params map[string]ScalingParameters
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("%w: decode scaling artifact %s: %v", ErrModelUnavailable, path, err)
	}
	for signal, p := range params {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: scaling artifact %s: %s: %v", ErrModelUnavailable, path, signal, err)
		}
	}
	return params, nil
}
