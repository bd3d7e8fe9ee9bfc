package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// 传导比率与上限：传导分最多贡献 30 分，不得压过直接信号
const (
	tier1PropagationRate = 0.3
	tierNPropagationRate = 0.1
	maxPropagatedScore   = 30
)

// 重大事件加成参数
const (
	criticalEventThreshold = 80
	severeEventThreshold   = 95
	multiCriticalBoost     = 30
	singleCriticalBoost    = 15
	severeExtraBoost       = 10
)

// 类别分上限：多个独立负面信号可以合法超过 100，200 用于约束病态输入
const maxCategoryScore = 200

// EntityScoreWrite 主体分写入项
type EntityScoreWrite struct {
	EntityID   string
	Score      int
	EventCount int
}

// CategoryScoreWrite 类别分写入项
type CategoryScoreWrite struct {
	CategoryID    string
	Score         int
	WeightedScore decimal.Decimal
	EntityCount   int
	EventCount    int
	Trend         Trend
}

// CompanyScoreWrite 公司分写入项
type CompanyScoreWrite struct {
	CompanyID       string
	DirectScore     int
	PropagatedScore int
	Boost           int
	TotalRiskScore  int
	RiskLevel       Status
	Trend           Trend
}

// ScorePass 一次公司重算的全量缓冲写入
// 先在内存算完，再由仓储作为单个逻辑单元提交，避免半程写入
type ScorePass struct {
	CompanyID     string
	Entities      []EntityScoreWrite
	Categories    []CategoryScoreWrite
	Company       CompanyScoreWrite
	CriticalCount int
}

// HierarchyAggregator 层级聚合器
// 事件 → 主体 → 类别 → 公司的逐层纯计算，仓储只负责取数和落库
type HierarchyAggregator struct {
	now func() time.Time
}

// NewHierarchyAggregator 创建层级聚合器
func NewHierarchyAggregator() *HierarchyAggregator {
	return &HierarchyAggregator{now: time.Now}
}

// eventAgeWeight 事件龄分档衰减权重，比信号级衰减更粗粒度
func eventAgeWeight(daysOld float64) float64 {
	switch {
	case daysOld <= 3:
		return 1.00
	case daysOld <= 7:
		return 0.80
	case daysOld <= 14:
		return 0.55
	case daysOld <= 30:
		return 0.30
	case daysOld <= 60:
		return 0.15
	default:
		return 0.05
	}
}

// BuildPass 对单个公司的子图计算一次完整重算
// 趋势依赖旧值，所有旧值从入参快照读取，写入全部缓冲在返回的 ScorePass 中
func (a *HierarchyAggregator) BuildPass(
	company *Company,
	groups []EntityEvents,
	categories []RiskCategory,
	related []RelatedCompany,
) (*ScorePass, error) {
	if company == nil {
		return nil, fmt.Errorf("company is nil")
	}
	if err := ValidateCategoryWeights(categories); err != nil {
		return nil, err
	}

	categoryByID := make(map[string]*RiskCategory, len(categories))
	for i := range categories {
		categoryByID[categories[i].ID] = &categories[i]
	}

	now := a.now()
	pass := &ScorePass{CompanyID: company.ID}

	// 1. 主体遍历：事件按龄加权求和
	type entityAgg struct {
		score      int
		eventCount int
	}
	entityScoreByCategory := make(map[string]int, len(categories))
	entityCountByCategory := make(map[string]int, len(categories))
	eventCountByCategory := make(map[string]int, len(categories))

	var criticalCount int
	var hasSevereEvent bool

	for _, group := range groups {
		if _, ok := categoryByID[group.Entity.CategoryID]; !ok {
			return nil, fmt.Errorf("entity %s references unknown category %s", group.Entity.ID, group.Entity.CategoryID)
		}

		var agg entityAgg
		var weighted float64
		for _, event := range group.Events {
			if event.RawScore <= 0 {
				continue
			}
			var daysOld float64
			if !event.PublishedAt.IsZero() && event.PublishedAt.Before(now) {
				daysOld = now.Sub(event.PublishedAt).Hours() / 24
			}
			weighted += float64(event.RawScore) * eventAgeWeight(daysOld)
			agg.eventCount++

			if event.RawScore >= criticalEventThreshold {
				criticalCount++
			}
			if event.RawScore >= severeEventThreshold {
				hasSevereEvent = true
			}
		}
		agg.score = ClampScore(int(math.Round(weighted)), 100)

		pass.Entities = append(pass.Entities, EntityScoreWrite{
			EntityID:   group.Entity.ID,
			Score:      agg.score,
			EventCount: agg.eventCount,
		})
		entityScoreByCategory[group.Entity.CategoryID] += agg.score
		entityCountByCategory[group.Entity.CategoryID]++
		eventCountByCategory[group.Entity.CategoryID] += agg.eventCount
	}

	// 2. 类别遍历：汇总主体分并加权，趋势与旧分对比
	direct := decimal.Zero
	for i := range categories {
		cat := &categories[i]
		score := ClampScore(entityScoreByCategory[cat.ID], maxCategoryScore)
		weightedScore := decimal.NewFromInt(int64(score)).Mul(cat.Weight)

		pass.Categories = append(pass.Categories, CategoryScoreWrite{
			CategoryID:    cat.ID,
			Score:         score,
			WeightedScore: weightedScore,
			EntityCount:   entityCountByCategory[cat.ID],
			EventCount:    eventCountByCategory[cat.ID],
			Trend:         TrendFromScores(cat.Score, score),
		})
		direct = direct.Add(weightedScore)
	}

	// 3. 公司直接分
	directScore := int(direct.Round(0).IntPart())

	// 4. 传导分：关联公司总分按层级比率折算，整体封顶
	var propagated float64
	for _, rel := range related {
		rate := tierNPropagationRate
		if rel.Tier <= 1 {
			rate = tier1PropagationRate
		}
		propagated += float64(rel.Company.TotalRiskScore) * rate
	}
	propagatedScore := ClampScore(int(math.Round(propagated)), maxPropagatedScore)

	// 5. 重大事件加成：少量高危独立信号应当整档抬升状态，而非线性叠加
	var boost int
	switch {
	case criticalCount >= 3:
		boost = multiCriticalBoost
	case criticalCount >= 1:
		boost = singleCriticalBoost
	}
	if hasSevereEvent {
		boost += severeExtraBoost
	}

	// 6. 总分与趋势
	total := ClampScore(directScore+propagatedScore+boost, 100)

	pass.CriticalCount = criticalCount
	pass.Company = CompanyScoreWrite{
		CompanyID:       company.ID,
		DirectScore:     directScore,
		PropagatedScore: propagatedScore,
		Boost:           boost,
		TotalRiskScore:  total,
		RiskLevel:       StatusFromScore(total),
		Trend:           TrendFromScores(company.TotalRiskScore, total),
	}

	return pass, nil
}
