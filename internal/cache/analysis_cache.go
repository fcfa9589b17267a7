package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/config"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
)

const (
	analysisKeyPrefix     = "demand:analysis"
	analysisListKeyPrefix = "demand:analysis_list"
	analysisScanBatchSize = 100
)

// AnalysisCache fronts the dashboard reads over persisted analyses.
type AnalysisCache interface {
	GetAnalysis(ctx context.Context, id string) (*domain.DemandAnalysisResult, bool, error)
	SetAnalysis(ctx context.Context, result *domain.DemandAnalysisResult) error
	GetList(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, string, bool, error)
	SetList(ctx context.Context, filter domain.AnalysisFilter, summaries []domain.AnalysisSummary, next string) error
	InvalidateAll(ctx context.Context) error
}

type redisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalysisCache struct{}

func NewAnalysisCache(cfg config.CacheConfig) (AnalysisCache, error) {
	if !cfg.Enabled {
		return &noopAnalysisCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisAnalysisCache{client: client, ttl: ttl}, nil
}

func NewNoopAnalysisCache() AnalysisCache {
	return &noopAnalysisCache{}
}

func (c *redisAnalysisCache) GetAnalysis(ctx context.Context, id string) (*domain.DemandAnalysisResult, bool, error) {
	payload, err := c.client.Get(ctx, analysisKeyPrefix+":"+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.DemandAnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode analysis cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisAnalysisCache) SetAnalysis(ctx context.Context, result *domain.DemandAnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode analysis cache: %w", err)
	}
	if err := c.client.Set(ctx, analysisKeyPrefix+":"+result.ID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

type cachedList struct {
	Summaries []domain.AnalysisSummary `json:"summaries"`
	Next      string                   `json:"next"`
}

func (c *redisAnalysisCache) GetList(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, string, bool, error) {
	payload, err := c.client.Get(ctx, listKey(filter)).Bytes()
	if err == redis.Nil {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("redis get failed: %w", err)
	}

	var list cachedList
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, "", false, fmt.Errorf("decode analysis list cache: %w", err)
	}
	return list.Summaries, list.Next, true, nil
}

func (c *redisAnalysisCache) SetList(ctx context.Context, filter domain.AnalysisFilter, summaries []domain.AnalysisSummary, next string) error {
	payload, err := json.Marshal(cachedList{Summaries: summaries, Next: next})
	if err != nil {
		return fmt.Errorf("encode analysis list cache: %w", err)
	}
	if err := c.client.Set(ctx, listKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisAnalysisCache) InvalidateAll(ctx context.Context) error {
	if err := deleteKeysWithPrefix(ctx, c.client, analysisKeyPrefix, analysisScanBatchSize); err != nil {
		return err
	}
	return deleteKeysWithPrefix(ctx, c.client, analysisListKeyPrefix, analysisScanBatchSize)
}

func (n *noopAnalysisCache) GetAnalysis(context.Context, string) (*domain.DemandAnalysisResult, bool, error) {
	return nil, false, nil
}

func (n *noopAnalysisCache) SetAnalysis(context.Context, *domain.DemandAnalysisResult) error {
	return nil
}

func (n *noopAnalysisCache) GetList(context.Context, domain.AnalysisFilter) ([]domain.AnalysisSummary, string, bool, error) {
	return nil, "", false, nil
}

func (n *noopAnalysisCache) SetList(context.Context, domain.AnalysisFilter, []domain.AnalysisSummary, string) error {
	return nil
}

func (n *noopAnalysisCache) InvalidateAll(context.Context) error {
	return nil
}

func listKey(filter domain.AnalysisFilter) string {
	parts := []string{}
	if filter.From != nil {
		parts = append(parts, "from="+filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		parts = append(parts, "to="+filter.To.UTC().Format(time.RFC3339))
	}
	if filter.ClientID != "" {
		parts = append(parts, "client="+filter.ClientID)
	}
	if filter.PartNum != "" {
		parts = append(parts, "part="+filter.PartNum)
	}
	if filter.Status != "" {
		parts = append(parts, "status="+strings.ToLower(filter.Status))
	}
	if filter.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", filter.Limit))
	}
	if filter.Cursor != "" {
		parts = append(parts, "cursor="+filter.Cursor)
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "&")))
	return analysisListKeyPrefix + ":" + hex.EncodeToString(sum[:])
}
