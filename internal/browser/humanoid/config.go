// internal/browser/humanoid/config.go
package humanoid

import (
	"math"
	"math/rand"

	"github.com/xkilldash9x/climber/internal/config"
)

// Config holds the parameters of the motor model. The *Mean/*StdDev pairs
// describe the population; FinalizeSessionPersona samples the per-session
// instance values from them.
type Config struct {
	Rng *rand.Rand

	FittsAMean, FittsAStdDev                     float64
	FittsBMean, FittsBStdDev                     float64
	GaussianStrengthMean, GaussianStrengthStdDev float64
	PerlinAmplitudeMean, PerlinAmplitudeStdDev   float64

	ClickHoldMinMs int
	ClickHoldMaxMs int

	FatigueIncreaseRate float64
	FatigueRecoveryRate float64

	// Instance values.
	FittsA, FittsB   float64
	GaussianStrength float64
	PerlinAmplitude  float64
}

// DefaultConfig returns parameters for an average desktop user.
func DefaultConfig() Config {
	return Config{
		FittsAMean: 100.0, FittsAStdDev: 15.0,
		FittsBMean: 120.0, FittsBStdDev: 20.0,
		GaussianStrengthMean: 0.5, GaussianStrengthStdDev: 0.1,
		PerlinAmplitudeMean: 2.5, PerlinAmplitudeStdDev: 0.5,
		ClickHoldMinMs:      50,
		ClickHoldMaxMs:      120,
		FatigueIncreaseRate: 0.005,
		FatigueRecoveryRate: 0.01,
	}
}

// ConfigFrom applies the user-facing settings to the defaults.
func ConfigFrom(s config.HumanoidConfig) Config {
	c := DefaultConfig()
	if s.ClickHoldMinMs > 0 {
		c.ClickHoldMinMs = s.ClickHoldMinMs
	}
	if s.ClickHoldMaxMs > 0 {
		c.ClickHoldMaxMs = s.ClickHoldMaxMs
	}
	return c
}

// FinalizeSessionPersona samples the instance parameters for one session.
func (c *Config) FinalizeSessionPersona(rng *rand.Rand) {
	c.Rng = rng
	c.FittsA = math.Max(20, sampleGaussian(rng, c.FittsAMean, c.FittsAStdDev))
	c.FittsB = math.Max(20, sampleGaussian(rng, c.FittsBMean, c.FittsBStdDev))
	c.GaussianStrength = math.Max(0, sampleGaussian(rng, c.GaussianStrengthMean, c.GaussianStrengthStdDev))
	c.PerlinAmplitude = math.Max(0, sampleGaussian(rng, c.PerlinAmplitudeMean, c.PerlinAmplitudeStdDev))

	if c.ClickHoldMaxMs <= c.ClickHoldMinMs {
		c.ClickHoldMaxMs = c.ClickHoldMinMs + 1
	}
}

func sampleGaussian(rng *rand.Rand, mean, stdDev float64) float64 {
	if rng == nil {
		return mean
	}
	return mean + rng.NormFloat64()*stdDev
}
