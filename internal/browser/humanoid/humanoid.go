// internal/browser/humanoid/humanoid.go
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"
)

// Humanoid simulates a person driving the mouse: curved, noisy movement
// timed by Fitts's law, variable press durations and idle hesitation.
type Humanoid struct {
	// mu guards every field below. Exported methods take it; unexported
	// helpers document whether they expect it held.
	mu             sync.Mutex
	baseConfig     Config
	dynamicConfig  Config
	logger         *zap.Logger
	executor       Executor
	currentPos     Vector2D
	fatigueLevel   float64
	rng            *rand.Rand
	noiseX, noiseY *perlin.Perlin
}

var _ Controller = (*Humanoid)(nil)

// New creates a Humanoid that emits events through executor.
func New(cfg Config, logger *zap.Logger, executor Executor) *Humanoid {
	seed := time.Now().UnixNano()
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(seed))
	}
	cfg.FinalizeSessionPersona(rng)

	return &Humanoid{
		baseConfig:    cfg,
		dynamicConfig: cfg,
		logger:        logger.Named("humanoid"),
		executor:      executor,
		rng:           rng,
		// Standard Perlin parameters; Y is offset so the axes drift independently.
		noiseX: perlin.NewPerlin(2, 2, 3, seed),
		noiseY: perlin.NewPerlin(2, 2, 3, seed+1),
	}
}

// NewTestHumanoid creates a deterministic Humanoid for tests.
func NewTestHumanoid(executor Executor, seed int64) *Humanoid {
	cfg := DefaultConfig()
	cfg.Rng = rand.New(rand.NewSource(seed))
	h := New(cfg, zap.NewNop(), executor)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.noiseX = perlin.NewPerlin(2, 2, 3, seed)
	h.noiseY = perlin.NewPerlin(2, 2, 3, seed+1)
	h.dynamicConfig.FittsA = 100.0
	h.dynamicConfig.FittsB = 150.0
	h.dynamicConfig.PerlinAmplitude = 2.0
	h.dynamicConfig.GaussianStrength = 0.5
	h.baseConfig = h.dynamicConfig
	return h
}

// Position returns the last known pointer position.
func (h *Humanoid) Position() Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentPos
}
