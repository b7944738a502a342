// Package search keeps a Redis projection of published policy text.
package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domain "github.com/iota-uz/compliance-sdk/modules/policy/domain/search"
)

const baseLanguage = "base"

// Store is the subset of *redis.Client the indexer needs.
type Store interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisIndexer stores one hash per (version, language) and a set per policy
// listing its hashes, so a policy can be dropped in one call.
type RedisIndexer struct {
	store  Store
	prefix string
}

func NewRedisIndexer(store Store, prefix string) *RedisIndexer {
	return &RedisIndexer{store: store, prefix: prefix}
}

func (r *RedisIndexer) Index(ctx context.Context, doc domain.Document) error {
	key := r.documentKey(doc)
	fields := []any{
		"policy_id", doc.PolicyID.String(),
		"version_id", doc.VersionID.String(),
		"language", doc.Language,
		"slug", doc.Slug,
		"title", doc.Title,
		"version", strconv.Itoa(doc.Version),
		"plain_text", doc.PlainText,
	}
	if doc.TranslationID != uuid.Nil {
		fields = append(fields, "translation_id", doc.TranslationID.String())
	}
	if err := r.store.HSet(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("index %s: %w", key, err)
	}
	if err := r.store.SAdd(ctx, r.policyKey(doc.TenantID, doc.PolicyID), key).Err(); err != nil {
		return fmt.Errorf("track %s: %w", key, err)
	}
	return nil
}

func (r *RedisIndexer) RemovePolicy(ctx context.Context, tenantID, policyID uuid.UUID) error {
	setKey := r.policyKey(tenantID, policyID)
	keys, err := r.store.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list documents of policy %s: %w", policyID, err)
	}
	return r.store.Del(ctx, append(keys, setKey)...).Err()
}

func (r *RedisIndexer) documentKey(doc domain.Document) string {
	lang := doc.Language
	if lang == "" {
		lang = baseLanguage
	}
	return fmt.Sprintf("%s:{%s}:doc:%s:%s", r.prefix, doc.TenantID, doc.VersionID, lang)
}

func (r *RedisIndexer) policyKey(tenantID, policyID uuid.UUID) string {
	return fmt.Sprintf("%s:{%s}:policy:%s", r.prefix, tenantID, policyID)
}
