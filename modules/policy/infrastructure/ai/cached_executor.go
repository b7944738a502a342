package ai

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
)

var translationCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "policy",
	Subsystem: "translation_cache",
	Name:      "requests_total",
	Help:      "Translation cache lookups broken down by result.",
}, []string{"result"})

// CacheStore is the subset of *redis.Client the cache needs.
type CacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedSkillExecutor memoizes successful translations in Redis.
// Redis failures degrade to a direct call.
type CachedSkillExecutor struct {
	next   skills.Executor
	store  CacheStore
	prefix string
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedSkillExecutor(next skills.Executor, store CacheStore, prefix string, ttl time.Duration, logger *logrus.Logger) *CachedSkillExecutor {
	return &CachedSkillExecutor{next: next, store: store, prefix: prefix, ttl: ttl, logger: logger}
}

func (e *CachedSkillExecutor) ExecuteSkill(ctx context.Context, skill string, req skills.TranslateRequest) (skills.Result, error) {
	key := e.cacheKey(skill, req)
	if cached, ok := e.lookup(ctx, key); ok {
		return cached, nil
	}

	res, err := e.next.ExecuteSkill(ctx, skill, req)
	if err != nil || !res.Success {
		return res, err
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return res, nil
	}
	if err := e.store.Set(ctx, key, payload, e.ttl).Err(); err != nil {
		e.warn(err, "failed to cache translation")
	}
	return res, nil
}

func (e *CachedSkillExecutor) lookup(ctx context.Context, key string) (skills.Result, bool) {
	raw, err := e.store.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		translationCacheRequests.WithLabelValues("miss").Inc()
		return skills.Result{}, false
	}
	if err != nil {
		translationCacheRequests.WithLabelValues("error").Inc()
		e.warn(err, "failed to read translation cache")
		return skills.Result{}, false
	}
	var res skills.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil || !res.Success {
		translationCacheRequests.WithLabelValues("error").Inc()
		return skills.Result{}, false
	}
	translationCacheRequests.WithLabelValues("hit").Inc()
	return res, true
}

func (e *CachedSkillExecutor) cacheKey(skill string, req skills.TranslateRequest) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s\x00%s\x00%t\x00%s", skill, req.TargetLanguage, req.PreserveFormatting, req.Content)))
	return fmt.Sprintf("%s:%s", e.prefix, hex.EncodeToString(hash[:]))
}

func (e *CachedSkillExecutor) warn(err error, msg string) {
	if e.logger != nil {
		e.logger.WithError(err).Warn(msg)
	}
}
