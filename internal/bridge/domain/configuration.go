package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/snapyr/snapyr-bridge/internal/bridge/sdk"
)

// OptionEnvironment is the configure option selecting the backend.
const OptionEnvironment = "snapyrEnvironment"

// ConfigureOptions are the parsed host options of a configure command.
type ConfigureOptions struct {
	Environment    sdk.Environment
	EnvironmentSet bool
}

// ParseConfigureOptions reads the known options from a host mapping.
// Unknown keys are ignored. Invalid values are reported in the returned
// slice and leave the corresponding default in effect.
func ParseConfigureOptions(raw map[string]any) (ConfigureOptions, []*InvalidOptionError) {
	opts := ConfigureOptions{Environment: sdk.DefaultEnvironment}
	if raw == nil {
		return opts, nil
	}

	var invalid []*InvalidOptionError

	if v, ok := raw[OptionEnvironment]; ok && v != nil {
		index, err := toInt(v)
		if err == nil {
			var env sdk.Environment
			env, err = sdk.EnvironmentFromIndex(index)
			if err == nil {
				opts.Environment = env
				opts.EnvironmentSet = true
			}
		}
		if err != nil {
			invalid = append(invalid, &InvalidOptionError{
				Option: OptionEnvironment,
				Value:  v,
				Err:    fmt.Errorf("%w: %w", ErrInvalidOption, err),
			})
		}
	}

	return opts, invalid
}

// Configuration is everything needed to build one SDK instance.
// It is created once per configure and not modified afterwards.
type Configuration struct {
	APIKey         string
	Environment    sdk.Environment
	EnvironmentSet bool
	UIContext      sdk.UIContext
}

// NewConfiguration combines the API key, parsed options and UI context.
func NewConfiguration(apiKey string, opts ConfigureOptions, ui sdk.UIContext) Configuration {
	return Configuration{
		APIKey:         apiKey,
		Environment:    opts.Environment,
		EnvironmentSet: opts.EnvironmentSet,
		UIContext:      ui,
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%v out of range", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
