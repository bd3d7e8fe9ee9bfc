// 包 风险级联推演的领域模型与引擎
package domain

import (
	"context"
	"fmt"
	"math"
	"sort"

	scoring "github.com/wyfcoding/riskscoring/internal/scoring/domain"
	"golang.org/x/sync/errgroup"
)

// Severity 情景严重度
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// 高风险供应商参与级联的门槛分
const cascadeSupplierThreshold = 50

// CascadeConfig 级联传导参数
// 层级乘数必须严格递减：越远的供应商影响越弱
type CascadeConfig struct {
	Tier1Multiplier     float64
	Tier2Multiplier     float64
	Tier3Multiplier     float64
	MaxDepth            int
	BasePropagationRate float64
}

// DefaultCascadeConfig 默认级联参数
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		Tier1Multiplier:     0.8,
		Tier2Multiplier:     0.5,
		Tier3Multiplier:     0.2,
		MaxDepth:            3,
		BasePropagationRate: 0.1,
	}
}

// tierMultiplier 供应链层级对应的传导乘数
func (c CascadeConfig) tierMultiplier(tier int) float64 {
	switch {
	case tier <= 1:
		return c.Tier1Multiplier
	case tier == 2:
		return c.Tier2Multiplier
	default:
		return c.Tier3Multiplier
	}
}

// ScenarioConfig 假设情景配置
type ScenarioConfig struct {
	ID                    string                   `json:"id"`
	Name                  string                   `json:"name"`
	Severity              Severity                 `json:"severity"`
	Sectors               []string                 `json:"sectors"`
	TargetIDs             []string                 `json:"target_ids"`
	ImpactFactors         map[scoring.Category]int `json:"impact_factors"`
	PropagationMultiplier float64                  `json:"propagation_multiplier"`
}

// 情景乘数缺省值，严重度仅为描述性标签，不参与数值计算
const defaultPropagationMultiplier = 1.5

// EffectiveMultiplier 情景乘数，未配置时取缺省值
func (s ScenarioConfig) EffectiveMultiplier() float64 {
	if s.PropagationMultiplier > 0 {
		return s.PropagationMultiplier
	}
	return defaultPropagationMultiplier
}

// affectsSector 判断行业是否在情景影响范围内
func (s ScenarioConfig) affectsSector(sector string) bool {
	for _, affected := range s.Sectors {
		if affected == sector {
			return true
		}
	}
	return false
}

// AffectedCategory 情景对单个类别的冲击，source 区分直接冲击与级联冲击
type AffectedCategory struct {
	Category scoring.Category `json:"category"`
	Delta    int              `json:"delta"`
	Source   string           `json:"source"`
}

// CascadeContribution 单个上游供应商对级联分的贡献
type CascadeContribution struct {
	CompanyID    string `json:"company_id"`
	CompanyName  string `json:"company_name"`
	Tier         int    `json:"tier"`
	Contribution int    `json:"contribution"`
}

// SimulationResult 单个公司的推演结果
// 仅为内存计算产物，绝不写回真实分数
type SimulationResult struct {
	CompanyID          string                `json:"company_id"`
	CompanyName        string                `json:"company_name"`
	OriginalScore      int                   `json:"original_score"`
	SimulatedScore     int                   `json:"simulated_score"`
	Delta              int                   `json:"delta"`
	RawDelta           int                   `json:"raw_delta"`
	AffectedCategories []AffectedCategory    `json:"affected_categories"`
	CascadePath        []CascadeContribution `json:"cascade_path"`
}

// TopologyReader 推演所需的图读取接口，只读
type TopologyReader interface {
	Company(ctx context.Context, companyID string) (*scoring.Company, error)
	CompaniesBySector(ctx context.Context, sectors []string) ([]scoring.Company, error)
	RelatedCompanies(ctx context.Context, companyID string) ([]scoring.RelatedCompany, error)
}

// CascadeEngine 级联推演引擎
type CascadeEngine struct {
	topology TopologyReader
	config   CascadeConfig
}

// NewCascadeEngine 创建级联推演引擎
func NewCascadeEngine(topology TopologyReader, config CascadeConfig) *CascadeEngine {
	if config.MaxDepth <= 0 {
		config = DefaultCascadeConfig()
	}
	return &CascadeEngine{topology: topology, config: config}
}

// Run 对情景执行一次完整推演
// 候选集 = 行业命中的公司 + 显式目标（去重，保持先后顺序）
// 结果按 Delta 降序稳定排序，相同输入必产出相同输出
func (e *CascadeEngine) Run(ctx context.Context, scenario ScenarioConfig) ([]SimulationResult, error) {
	candidates, err := e.collectCandidates(ctx, scenario)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []SimulationResult{}, nil
	}

	multiplier := scenario.EffectiveMultiplier()
	results := make([]SimulationResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, candidate := range candidates {
		g.Go(func() error {
			result, err := e.simulateCompany(gctx, candidate, scenario, multiplier)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Delta > results[j].Delta
	})
	return results, nil
}

// collectCandidates 收集推演候选公司
func (e *CascadeEngine) collectCandidates(ctx context.Context, scenario ScenarioConfig) ([]scoring.Company, error) {
	var candidates []scoring.Company
	seen := make(map[string]struct{})

	if len(scenario.Sectors) > 0 {
		companies, err := e.topology.CompaniesBySector(ctx, scenario.Sectors)
		if err != nil {
			return nil, err
		}
		for _, c := range companies {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			candidates = append(candidates, c)
		}
	}

	for _, id := range scenario.TargetIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		company, err := e.topology.Company(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load target %s: %w", id, err)
		}
		seen[id] = struct{}{}
		candidates = append(candidates, *company)
	}
	return candidates, nil
}

// simulateCompany 对单个候选公司计算直接冲击与级联冲击
func (e *CascadeEngine) simulateCompany(
	ctx context.Context,
	company scoring.Company,
	scenario ScenarioConfig,
	multiplier float64,
) (SimulationResult, error) {
	// 直接冲击：仅施加于行业命中的公司，显式目标若行业未命中只承受级联冲击
	// 按类别键排序遍历，保证确定性
	var directImpact int
	affected := make([]AffectedCategory, 0, len(scenario.ImpactFactors))
	if scenario.affectsSector(company.Sector) {
		categories := make([]scoring.Category, 0, len(scenario.ImpactFactors))
		for cat := range scenario.ImpactFactors {
			categories = append(categories, cat)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

		for _, cat := range categories {
			delta := int(math.Round(float64(scenario.ImpactFactors[cat]) * multiplier))
			if delta == 0 {
				continue
			}
			affected = append(affected, AffectedCategory{Category: cat, Delta: delta, Source: "direct"})
			directImpact += delta
		}
	}

	// 级联冲击：广度优先遍历上游，仅高风险供应商参与
	suppliers, err := e.highRiskSuppliers(ctx, company.ID)
	if err != nil {
		return SimulationResult{}, err
	}

	var cascadeImpact int
	path := make([]CascadeContribution, 0, len(suppliers))
	for _, sup := range suppliers {
		contribution := int(math.Round(
			float64(sup.Company.TotalRiskScore) *
				e.config.BasePropagationRate *
				e.config.tierMultiplier(sup.Tier) *
				multiplier,
		))
		if contribution == 0 {
			continue
		}
		path = append(path, CascadeContribution{
			CompanyID:    sup.Company.ID,
			CompanyName:  sup.Company.Name,
			Tier:         sup.Tier,
			Contribution: contribution,
		})
		cascadeImpact += contribution
	}

	rawScore := company.TotalRiskScore + directImpact + cascadeImpact
	simulated := scoring.ClampScore(rawScore, 100)

	return SimulationResult{
		CompanyID:          company.ID,
		CompanyName:        company.Name,
		OriginalScore:      company.TotalRiskScore,
		SimulatedScore:     simulated,
		Delta:              simulated - company.TotalRiskScore,
		RawDelta:           rawScore - company.TotalRiskScore,
		AffectedCategories: affected,
		CascadePath:        path,
	}, nil
}

// highRiskSuppliers 广度优先收集 MaxDepth 跳内总分超门槛的上游供应商
// 层级取边上层级与跳数的较大值，同一公司只记首次到达
func (e *CascadeEngine) highRiskSuppliers(ctx context.Context, companyID string) ([]scoring.RelatedCompany, error) {
	type queueItem struct {
		companyID string
		depth     int
	}

	visited := map[string]struct{}{companyID: {}}
	queue := []queueItem{{companyID: companyID, depth: 0}}
	var suppliers []scoring.RelatedCompany

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.depth >= e.config.MaxDepth {
			continue
		}

		related, err := e.topology.RelatedCompanies(ctx, item.companyID)
		if err != nil {
			return nil, err
		}
		for _, rel := range related {
			if _, ok := visited[rel.Company.ID]; ok {
				continue
			}
			visited[rel.Company.ID] = struct{}{}

			tier := rel.Tier
			if item.depth+1 > tier {
				tier = item.depth + 1
			}
			if rel.Company.TotalRiskScore > cascadeSupplierThreshold {
				suppliers = append(suppliers, scoring.RelatedCompany{Company: rel.Company, Tier: tier})
			}
			queue = append(queue, queueItem{companyID: rel.Company.ID, depth: item.depth + 1})
		}
	}
	return suppliers, nil
}
