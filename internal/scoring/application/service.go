// 包 风险评分应用服务，编排关键词匹配、信号评分与层级重算
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wyfcoding/riskscoring/internal/scoring/domain"
	"github.com/wyfcoding/riskscoring/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ScoreEventRequest 单信号评分请求 DTO
type ScoreEventRequest struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
}

// RecomputeResult 公司重算结果 DTO
type RecomputeResult struct {
	CompanyID       string        `json:"company_id"`
	DirectScore     int           `json:"direct_score"`
	PropagatedScore int           `json:"propagated_score"`
	Boost           int           `json:"boost"`
	TotalRiskScore  int           `json:"total_risk_score"`
	RiskLevel       domain.Status `json:"risk_level"`
	Trend           domain.Trend  `json:"trend"`
	CriticalCount   int           `json:"critical_count"`
}

// 发布时间允许的输入格式
var publishedAtLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// ScoringService 评分门面服务
type ScoringService struct {
	repo       domain.GraphRepository
	matcher    *domain.KeywordMatcher
	scorer     *domain.SignalScorer
	aggregator *domain.HierarchyAggregator
	publisher  domain.EventPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// 同一公司的重算必须串行：趋势计算依赖写前旧值，并发会丢更新
	companyLocks sync.Map // companyID -> *sync.Mutex
}

// NewScoringService 创建评分服务，publisher 与 m 允许为 nil
func NewScoringService(
	repo domain.GraphRepository,
	matcher *domain.KeywordMatcher,
	scorer *domain.SignalScorer,
	aggregator *domain.HierarchyAggregator,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ScoringService {
	return &ScoringService{
		repo:       repo,
		matcher:    matcher,
		scorer:     scorer,
		aggregator: aggregator,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// ScoreEvent 对一条信号文本评分
// 输入类错误按文档化缺省值降级（评分必须永远给出一个分数），不返回错误
func (s *ScoringService) ScoreEvent(ctx context.Context, req *ScoreEventRequest) *domain.ScoreResult {
	publishedAt := s.parsePublishedAt(ctx, req.PublishedAt)
	result := s.scorer.ScoreText(req.Text, domain.Source(req.Source), publishedAt)

	if s.metrics != nil {
		s.metrics.SignalScoresTotal.Inc()
	}
	return &result
}

// ClassifyKeyword 解释单个关键词的类别
func (s *ScoringService) ClassifyKeyword(keyword string) domain.Category {
	return s.matcher.Classify(keyword)
}

// RecomputeCompany 对单个公司执行一次完整重算
// 读取快照 → 内存计算 → 单事务提交；存取器错误透传，已持久化分数保持原状
func (s *ScoringService) RecomputeCompany(ctx context.Context, companyID string) (*RecomputeResult, error) {
	lock := s.lockFor(companyID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	company, err := s.repo.Company(ctx, companyID)
	if err != nil {
		return nil, s.recomputeFailed(ctx, companyID, err)
	}
	groups, err := s.repo.EntityEventsByCompany(ctx, companyID)
	if err != nil {
		return nil, s.recomputeFailed(ctx, companyID, err)
	}
	categories, err := s.repo.CompanyCategories(ctx, companyID)
	if err != nil {
		return nil, s.recomputeFailed(ctx, companyID, err)
	}
	related, err := s.repo.RelatedCompanies(ctx, companyID)
	if err != nil {
		return nil, s.recomputeFailed(ctx, companyID, err)
	}

	pass, err := s.aggregator.BuildPass(company, groups, categories, related)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CommitScorePass(ctx, pass); err != nil {
		return nil, s.recomputeFailed(ctx, companyID, err)
	}

	if s.metrics != nil {
		s.metrics.RecomputesTotal.Inc()
		s.metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	}

	s.publishRecomputed(ctx, company, pass)

	return &RecomputeResult{
		CompanyID:       pass.Company.CompanyID,
		DirectScore:     pass.Company.DirectScore,
		PropagatedScore: pass.Company.PropagatedScore,
		Boost:           pass.Company.Boost,
		TotalRiskScore:  pass.Company.TotalRiskScore,
		RiskLevel:       pass.Company.RiskLevel,
		Trend:           pass.Company.Trend,
		CriticalCount:   pass.CriticalCount,
	}, nil
}

// RecomputeAll 批量重算，多公司并行、单公司串行
func (s *ScoringService) RecomputeAll(ctx context.Context, companyIDs []string) ([]*RecomputeResult, error) {
	results := make([]*RecomputeResult, len(companyIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range companyIDs {
		g.Go(func() error {
			r, err := s.RecomputeCompany(gctx, id)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetCompanyScore 读取公司已持久化的分数与类别拆解
func (s *ScoringService) GetCompanyScore(ctx context.Context, companyID string) (*domain.Company, []domain.RiskCategory, error) {
	company, err := s.repo.Company(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	categories, err := s.repo.CompanyCategories(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	return company, categories, nil
}

func (s *ScoringService) lockFor(companyID string) *sync.Mutex {
	actual, _ := s.companyLocks.LoadOrStore(companyID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (s *ScoringService) parsePublishedAt(ctx context.Context, raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	// 数据质量告警：畸形日期降级为当天，而非静默吞错
	s.logger.WarnContext(ctx, "malformed published_at, scoring as today", "published_at", raw)
	return time.Time{}
}

func (s *ScoringService) recomputeFailed(ctx context.Context, companyID string, err error) error {
	if s.metrics != nil {
		s.metrics.RecomputeFailuresTotal.Inc()
	}
	s.logger.ErrorContext(ctx, "company recomputation aborted", "company_id", companyID, "error", err)
	return err
}

func (s *ScoringService) publishRecomputed(ctx context.Context, company *domain.Company, pass *domain.ScorePass) {
	if s.publisher == nil {
		return
	}
	event := domain.CompanyRecomputedEvent{
		CompanyID:       pass.Company.CompanyID,
		DirectScore:     pass.Company.DirectScore,
		PropagatedScore: pass.Company.PropagatedScore,
		Boost:           pass.Company.Boost,
		TotalRiskScore:  pass.Company.TotalRiskScore,
		PreviousTotal:   company.TotalRiskScore,
		RiskLevel:       pass.Company.RiskLevel,
		Trend:           pass.Company.Trend,
	}
	if err := s.publisher.Publish(ctx, domain.CompanyRecomputedEventType, pass.Company.CompanyID, event); err != nil {
		// 事件仅为通知用途，发布失败不回滚已提交的分数
		s.logger.ErrorContext(ctx, "failed to publish recomputed event", "company_id", pass.Company.CompanyID, "error", err)
	}
}
