package sdk

import (
	"fmt"
	"strings"
)

// Environment selects the Snapyr backend the SDK talks to.
// The numeric values are the enum indices hosts send over the bridge.
type Environment int

const (
	EnvironmentProduction Environment = iota
	EnvironmentStage
	EnvironmentDev
)

// DefaultEnvironment is used when no valid environment was requested.
const DefaultEnvironment = EnvironmentProduction

// String returns the environment's canonical name.
func (e Environment) String() string {
	switch e {
	case EnvironmentProduction:
		return "PROD"
	case EnvironmentStage:
		return "STAGE"
	case EnvironmentDev:
		return "DEV"
	default:
		return fmt.Sprintf("Environment(%d)", int(e))
	}
}

// IsValid reports whether e is one of the known environments.
func (e Environment) IsValid() bool {
	return e >= EnvironmentProduction && e <= EnvironmentDev
}

// EnvironmentFromIndex maps a host-supplied enum index to an Environment.
func EnvironmentFromIndex(index int) (Environment, error) {
	env := Environment(index)
	if !env.IsValid() {
		return DefaultEnvironment, fmt.Errorf("%w: index %d", ErrInvalidEnvironment, index)
	}
	return env, nil
}

// ParseEnvironment maps a name such as "prod" or "STAGE" to an Environment.
func ParseEnvironment(name string) (Environment, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "PROD", "PRODUCTION":
		return EnvironmentProduction, nil
	case "STAGE", "STAGING":
		return EnvironmentStage, nil
	case "DEV", "DEVELOPMENT":
		return EnvironmentDev, nil
	default:
		return DefaultEnvironment, fmt.Errorf("%w: %q", ErrInvalidEnvironment, name)
	}
}
