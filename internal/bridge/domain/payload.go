package domain

import "github.com/snapyr/snapyr-bridge/internal/bridge/sdk"

// NormalizeTraits returns a non-nil copy of m.
func NormalizeTraits(m map[string]any) sdk.Traits {
	out := make(sdk.Traits, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NormalizeProperties returns a non-nil copy of m.
func NormalizeProperties(m map[string]any) sdk.Properties {
	out := make(sdk.Properties, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
