package matcher

import (
	"fmt"
	"math"
	"runtime"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
)

// Default match settings.
const (
	DefaultSensitivity = 0.6
	DefaultKeep        = 5
)

// Config controls one matching session. It is passed by value and never
// mutated after construction.
type Config struct {
	Sensitivity float64 // Minimum score a match needs, in [0,1]
	Keep        int     // Maximum number of results, 0 disables matching
	Workers     int     // Worker pool size for sharded search

	// TolerateShardErrors omits unreadable shards from a sharded search
	// instead of failing the whole call.
	TolerateShardErrors bool
}

// DefaultConfig returns the default match settings.
func DefaultConfig() Config {
	return Config{
		Sensitivity: DefaultSensitivity,
		Keep:        DefaultKeep,
		Workers:     runtime.NumCPU(),
	}
}

// Validate checks the settings used by a single Matcher.
func (c Config) Validate() error {
	if math.IsNaN(c.Sensitivity) || c.Sensitivity < 0 || c.Sensitivity > 1 {
		return amerrors.ConfigError(amerrors.ErrCodeInvalidSensitivity,
			fmt.Sprintf("sensitivity must be within [0, 1], got %v", c.Sensitivity)).
			WithSuggestion("Use a value such as 0.6; 0 accepts everything, 1 only exact matches")
	}
	if c.Keep < 0 {
		return amerrors.ConfigError(amerrors.ErrCodeInvalidKeep,
			fmt.Sprintf("keep must be >= 0, got %d", c.Keep))
	}
	return nil
}

// ValidateSharded checks the settings of a sharded search.
func (c Config) ValidateSharded() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return amerrors.ConfigError(amerrors.ErrCodeInvalidWorkers,
			fmt.Sprintf("workers must be >= 1, got %d", c.Workers))
	}
	return nil
}
