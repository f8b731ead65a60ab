package plan

import (
	"runtime"

	"marshal-planner/internal/declare"
)

// Config holds configuration for a resolution pass.
type Config struct {
	// Workers is the number of items resolved concurrently.
	Workers int
	// Strict turns any error diagnostic into a failed pass.
	Strict bool
}

// DefaultConfig returns the default pass configuration.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.GOMAXPROCS(0),
		Strict:  false,
	}
}

// WithDeclarations applies the config section of a declaration file.
// Zero values leave the current setting in place.
func (c Config) WithDeclarations(d *declare.ConfigDecl) Config {
	if d == nil {
		return c
	}

	if d.Workers > 0 {
		c.Workers = d.Workers
	}

	c.Strict = c.Strict || d.Strict

	return c
}

func (c Config) normalized() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultConfig().Workers
	}

	return c
}
