package ai

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
)

type BreakerConfig struct {
	// Consecutive failures before the circuit opens.
	Threshold int
	// How long the circuit stays open before a probe request is let through.
	Cooldown time.Duration
}

// BreakerSkillExecutor stops calling the provider after repeated failures.
// Calls are never retried; an open circuit fails fast with an error.
type BreakerSkillExecutor struct {
	next    skills.Executor
	breaker circuitbreaker.CircuitBreaker[skills.Result]
}

func NewBreakerSkillExecutor(next skills.Executor, cfg BreakerConfig, logger *logrus.Logger) *BreakerSkillExecutor {
	threshold := cfg.Threshold
	if threshold < 1 {
		threshold = 5
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &BreakerSkillExecutor{
		next: next,
		breaker: circuitbreaker.New[skills.Result](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cooldown,
			Timeout:     cooldown,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				tripped := counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold >= 1
				if tripped && logger != nil {
					logger.WithField("failures", counts.ConsecutiveFailures).Warn("translation circuit opened")
				}
				return tripped
			},
		}),
	}
}

func (e *BreakerSkillExecutor) ExecuteSkill(ctx context.Context, skill string, req skills.TranslateRequest) (skills.Result, error) {
	return e.breaker.Execute(ctx, func(ctx context.Context) (skills.Result, error) {
		return e.next.ExecuteSkill(ctx, skill, req)
	})
}

func (e *BreakerSkillExecutor) State() circuitbreaker.State {
	return e.breaker.State()
}
