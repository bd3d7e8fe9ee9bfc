// 包 级联推演应用服务，编排情景校验、缓存与推演引擎
package application

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/riskscoring/internal/simulation/domain"
	"github.com/wyfcoding/riskscoring/pkg/metrics"
)

// 推演结果缓存键前缀
const cacheKeyPrefix = "simulation:"

// ResultCache 推演结果缓存接口，pkg/cache 的 Redis 实现满足该接口
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// SimulationService 推演门面服务
type SimulationService struct {
	engine    *domain.CascadeEngine
	scenarios domain.ScenarioRepository
	cache     ResultCache
	cacheTTL  time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewSimulationService 创建推演服务，cache 与 m 允许为 nil
func NewSimulationService(
	engine *domain.CascadeEngine,
	scenarios domain.ScenarioRepository,
	cache ResultCache,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SimulationService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &SimulationService{
		engine:    engine,
		scenarios: scenarios,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Simulate 对情景执行推演，命中缓存时直接返回
func (s *SimulationService) Simulate(ctx context.Context, scenario domain.ScenarioConfig) ([]domain.SimulationResult, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	key := s.cacheKey(scenario)
	if s.cache != nil {
		var cached []domain.SimulationResult
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			// 缓存故障只降级为重算
			s.logger.WarnContext(ctx, "simulation cache read failed", "key", key, "error", err)
		}
		if hit {
			if s.metrics != nil {
				s.metrics.SimulationCacheHits.Inc()
			}
			return cached, nil
		}
	}

	results, err := s.engine.Run(ctx, scenario)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SimulationsTotal.Inc()
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, results, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "simulation cache write failed", "key", key, "error", err)
		}
	}
	return results, nil
}

// RunScenario 读取已保存的情景并推演，成功后记录推演时间
func (s *SimulationService) RunScenario(ctx context.Context, scenarioID string) ([]domain.SimulationResult, error) {
	record, err := s.scenarios.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	scenario, err := record.Config()
	if err != nil {
		return nil, err
	}

	results, err := s.Simulate(ctx, scenario)
	if err != nil {
		return nil, err
	}
	if err := s.scenarios.TouchLastRun(ctx, scenarioID, s.now()); err != nil {
		s.logger.WarnContext(ctx, "failed to record scenario run time", "scenario_id", scenarioID, "error", err)
	}
	return results, nil
}

// SaveScenario 校验并保存情景，返回情景 ID
func (s *SimulationService) SaveScenario(ctx context.Context, scenario domain.ScenarioConfig) (string, error) {
	if err := scenario.Validate(); err != nil {
		return "", err
	}
	if scenario.ID == "" {
		scenario.ID = uuid.NewString()
	}
	record, err := domain.NewScenarioRecord(scenario)
	if err != nil {
		return "", err
	}
	if err := s.scenarios.Save(ctx, record); err != nil {
		return "", err
	}
	return scenario.ID, nil
}

// GetScenario 读取已保存的情景配置
func (s *SimulationService) GetScenario(ctx context.Context, scenarioID string) (*domain.ScenarioConfig, error) {
	record, err := s.scenarios.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	config, err := record.Config()
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// ListScenarios 列出已保存的情景
func (s *SimulationService) ListScenarios(ctx context.Context, limit, offset int) ([]domain.ScenarioRecord, error) {
	return s.scenarios.List(ctx, limit, offset)
}

// ClearCache 清空推演结果缓存，分数重算后调用
func (s *SimulationService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPrefix(ctx, cacheKeyPrefix)
}

// cacheKey 生成与目标/行业顺序无关的缓存键
// 同一情景以任意顺序提交都命中同一条缓存；未命名情景按内容寻址
func (s *SimulationService) cacheKey(scenario domain.ScenarioConfig) string {
	targets := make([]string, len(scenario.TargetIDs))
	copy(targets, scenario.TargetIDs)
	sort.Strings(targets)

	sectors := make([]string, len(scenario.Sectors))
	copy(sectors, scenario.Sectors)
	sort.Strings(sectors)

	factors := make([]string, 0, len(scenario.ImpactFactors))
	for cat, delta := range scenario.ImpactFactors {
		factors = append(factors, fmt.Sprintf("%s=%d", cat, delta))
	}
	sort.Strings(factors)

	fingerprint := strings.Join([]string{
		scenario.ID,
		string(scenario.Severity),
		fmt.Sprintf("%.4f", scenario.EffectiveMultiplier()),
		strings.Join(factors, ","),
		strings.Join(sectors, ","),
		strings.Join(targets, ","),
	}, "|")

	h := fnv.New64a()
	h.Write([]byte(fingerprint))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, h.Sum64())
}
