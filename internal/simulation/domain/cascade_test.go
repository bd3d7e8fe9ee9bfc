package domain

import (
	"context"
	"fmt"
	"sort"
	"testing"

	scoring "github.com/wyfcoding/riskscoring/internal/scoring/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTopology 内存图，测试用
type fakeTopology struct {
	companies map[string]scoring.Company
	relations map[string][]scoring.RelatedCompany
}

func (f *fakeTopology) Company(_ context.Context, companyID string) (*scoring.Company, error) {
	c, ok := f.companies[companyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scoring.ErrCompanyNotFound, companyID)
	}
	return &c, nil
}

func (f *fakeTopology) CompaniesBySector(_ context.Context, sectors []string) ([]scoring.Company, error) {
	want := make(map[string]struct{}, len(sectors))
	for _, s := range sectors {
		want[s] = struct{}{}
	}
	// map 遍历无序，按 ID 收集后在调用方断言集合
	var out []scoring.Company
	for _, id := range sortedKeys(f.companies) {
		c := f.companies[id]
		if _, ok := want[c.Sector]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeTopology) RelatedCompanies(_ context.Context, companyID string) ([]scoring.RelatedCompany, error) {
	return f.relations[companyID], nil
}

func sortedKeys(m map[string]scoring.Company) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newTestEngine(topo *fakeTopology) *CascadeEngine {
	return NewCascadeEngine(topo, DefaultCascadeConfig())
}

func TestRunSectorScenarioDirectImpact(t *testing.T) {
	topo := &fakeTopology{
		companies: map[string]scoring.Company{
			"chip1": {ID: "chip1", Name: "칩메이커", Sector: "반도체", TotalRiskScore: 40},
		},
		relations: map[string][]scoring.RelatedCompany{},
	}
	engine := newTestEngine(topo)

	scenario := ScenarioConfig{
		Name:    "수출 규제",
		Sectors: []string{"반도체"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategoryLegal: 10,
		},
		PropagationMultiplier: 2.0,
	}

	results, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "chip1", r.CompanyID)
	assert.Equal(t, 40, r.OriginalScore)
	// 10 × 2.0 = 20
	assert.Equal(t, 60, r.SimulatedScore)
	assert.Equal(t, 20, r.Delta)
	assert.Equal(t, 20, r.RawDelta)
	require.Len(t, r.AffectedCategories, 1)
	assert.Equal(t, scoring.CategoryLegal, r.AffectedCategories[0].Category)
	assert.Equal(t, 20, r.AffectedCategories[0].Delta)
	assert.Equal(t, "direct", r.AffectedCategories[0].Source)
	assert.Empty(t, r.CascadePath)
}

func TestRunTargetOutsideAffectedSectorsGetsNoDirectImpact(t *testing.T) {
	topo := &fakeTopology{
		companies: map[string]scoring.Company{
			"ship1": {ID: "ship1", Name: "조선사", Sector: "조선", TotalRiskScore: 40},
			"sup1":  {ID: "sup1", Name: "부품사", Sector: "부품", TotalRiskScore: 80},
		},
		relations: map[string][]scoring.RelatedCompany{},
	}
	engine := newTestEngine(topo)

	scenario := ScenarioConfig{
		Name:      "수출 규제",
		Sectors:   []string{"반도체"},
		TargetIDs: []string{"ship1"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategoryLegal: 10,
		},
		PropagationMultiplier: 2.0,
	}

	results, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// 行业未命中的显式目标不承受直接冲击
	r := results[0]
	assert.Equal(t, "ship1", r.CompanyID)
	assert.Zero(t, r.Delta)
	assert.Equal(t, 40, r.SimulatedScore)
	assert.Empty(t, r.AffectedCategories)
	assert.Empty(t, r.CascadePath)

	// 同一目标有高风险供应商时只承受级联冲击
	topo.relations["ship1"] = []scoring.RelatedCompany{
		{Company: scoring.Company{ID: "sup1", Name: "부품사", TotalRiskScore: 80}, Tier: 1},
	}
	results, err = engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r = results[0]
	assert.Empty(t, r.AffectedCategories)
	require.Len(t, r.CascadePath, 1)
	// round(80 × 0.1 × 0.8 × 2.0) = 13
	assert.Equal(t, 13, r.CascadePath[0].Contribution)
	assert.Equal(t, 13, r.Delta)
}

func TestRunClampsSimulatedScoreAt100(t *testing.T) {
	topo := &fakeTopology{
		companies: map[string]scoring.Company{
			"c1": {ID: "c1", Name: "한계기업", Sector: "조선", TotalRiskScore: 95},
		},
		relations: map[string][]scoring.RelatedCompany{},
	}
	engine := newTestEngine(topo)

	scenario := ScenarioConfig{
		Name:    "업황 악화",
		Sectors: []string{"조선"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategoryCredit: 20,
		},
		PropagationMultiplier: 1.0,
	}

	results, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 100, results[0].SimulatedScore)
	assert.Equal(t, 5, results[0].Delta)
	assert.Equal(t, 20, results[0].RawDelta, "raw delta reports the unclamped impact")
}

func TestRunCascadeFromHighRiskSupplier(t *testing.T) {
	topo := &fakeTopology{
		companies: map[string]scoring.Company{
			"oem":  {ID: "oem", Name: "완성차", Sector: "자동차", TotalRiskScore: 30},
			"sup1": {ID: "sup1", Name: "부품사", Sector: "부품", TotalRiskScore: 80},
			"sup2": {ID: "sup2", Name: "소재사", Sector: "소재", TotalRiskScore: 40},
		},
		relations: map[string][]scoring.RelatedCompany{
			"oem": {
				{Company: scoring.Company{ID: "sup1", Name: "부품사", TotalRiskScore: 80}, Tier: 1},
				{Company: scoring.Company{ID: "sup2", Name: "소재사", TotalRiskScore: 40}, Tier: 1},
			},
		},
	}
	engine := newTestEngine(topo)

	scenario := ScenarioConfig{
		Name:      "공급망 충격",
		Sectors:   []string{"자동차"},
		TargetIDs: []string{"oem"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategorySupplyChain: 5,
		},
		PropagationMultiplier: 1.0,
	}

	results, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	// 低分供应商不参与级联
	require.Len(t, r.CascadePath, 1)
	assert.Equal(t, "sup1", r.CascadePath[0].CompanyID)
	assert.Equal(t, 1, r.CascadePath[0].Tier)
	// round(80 × 0.1 × 0.8 × 1.0) = 6
	assert.Equal(t, 6, r.CascadePath[0].Contribution)
	// 30 + 5 + 6 = 41
	assert.Equal(t, 41, r.SimulatedScore)
}

func TestRunCascadeDepthLimitAndTiers(t *testing.T) {
	// oem → sup1 → sup2 → sup3 → sup4，MaxDepth 3 时 sup4 不可达
	topo := &fakeTopology{
		companies: map[string]scoring.Company{
			"oem": {ID: "oem", Name: "완성차", TotalRiskScore: 10},
		},
		relations: map[string][]scoring.RelatedCompany{
			"oem":  {{Company: scoring.Company{ID: "sup1", TotalRiskScore: 60}, Tier: 1}},
			"sup1": {{Company: scoring.Company{ID: "sup2", TotalRiskScore: 60}, Tier: 1}},
			"sup2": {{Company: scoring.Company{ID: "sup3", TotalRiskScore: 60}, Tier: 1}},
			"sup3": {{Company: scoring.Company{ID: "sup4", TotalRiskScore: 60}, Tier: 1}},
		},
	}
	engine := newTestEngine(topo)

	scenario := ScenarioConfig{
		Name:      "심층 충격",
		TargetIDs: []string{"oem"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategorySupplyChain: 1,
		},
		PropagationMultiplier: 1.0,
	}

	results, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	require.Len(t, r.CascadePath, 3, "BFS must stop at MaxDepth")
	// 层级取边上层级与跳数的较大值
	tiers := map[string]int{}
	for _, c := range r.CascadePath {
		tiers[c.CompanyID] = c.Tier
	}
	assert.Equal(t, 1, tiers["sup1"])
	assert.Equal(t, 2, tiers["sup2"])
	assert.Equal(t, 3, tiers["sup3"])
}

func TestRunDeterministicAndSorted(t *testing.T) {
	topo := &fakeTopology{
		companies: map[string]scoring.Company{
			"a": {ID: "a", Name: "가", Sector: "반도체", TotalRiskScore: 10},
			"b": {ID: "b", Name: "나", Sector: "반도체", TotalRiskScore: 90},
			"c": {ID: "c", Name: "다", Sector: "반도체", TotalRiskScore: 50},
		},
		relations: map[string][]scoring.RelatedCompany{},
	}
	engine := newTestEngine(topo)

	scenario := ScenarioConfig{
		Name:    "업종 전반 충격",
		Sectors: []string{"반도체"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategoryCredit: 15,
			scoring.CategoryLegal:  5,
		},
	}

	first, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same scenario must produce identical output")

	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Delta, first[i].Delta, "results sorted by delta descending")
	}
	// 高分公司被上限截断，涨幅反而最小
	assert.Equal(t, "b", first[len(first)-1].CompanyID)
}

func TestRunDeduplicatesSectorAndTargetOverlap(t *testing.T) {
	topo := &fakeTopology{
		companies: map[string]scoring.Company{
			"a": {ID: "a", Name: "가", Sector: "반도체", TotalRiskScore: 10},
		},
		relations: map[string][]scoring.RelatedCompany{},
	}
	engine := newTestEngine(topo)

	scenario := ScenarioConfig{
		Name:      "중복 지정",
		Sectors:   []string{"반도체"},
		TargetIDs: []string{"a"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategoryCredit: 10,
		},
	}

	results, err := engine.Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRunRejectsInvalidScenarioViaValidate(t *testing.T) {
	assert.Error(t, ScenarioConfig{Name: "x"}.Validate(), "no impact factors")
	assert.Error(t, ScenarioConfig{
		Name:          "x",
		ImpactFactors: map[scoring.Category]int{scoring.CategoryLegal: 10},
	}.Validate(), "no sectors or targets")
	assert.Error(t, ScenarioConfig{
		Name:          "x",
		Sectors:       []string{"반도체"},
		ImpactFactors: map[scoring.Category]int{scoring.CategoryLegal: 500},
	}.Validate(), "impact factor out of range")
	assert.NoError(t, ScenarioConfig{
		Name:          "x",
		Sectors:       []string{"반도체"},
		ImpactFactors: map[scoring.Category]int{scoring.CategoryLegal: 10},
	}.Validate())
}

func TestEffectiveMultiplier(t *testing.T) {
	assert.Equal(t, 3.0, ScenarioConfig{PropagationMultiplier: 3.0}.EffectiveMultiplier())
	// 严重度只是描述性标签，未配置乘数时一律取 1.5
	assert.Equal(t, 1.5, ScenarioConfig{}.EffectiveMultiplier())
	assert.Equal(t, 1.5, ScenarioConfig{Severity: SeverityLow}.EffectiveMultiplier())
	assert.Equal(t, 1.5, ScenarioConfig{Severity: SeverityHigh}.EffectiveMultiplier())
}

func TestScenarioRecordRoundTrip(t *testing.T) {
	config := ScenarioConfig{
		ID:        "s1",
		Name:      "왕복 검증",
		Severity:  SeverityHigh,
		Sectors:   []string{"반도체"},
		TargetIDs: []string{"a", "b"},
		ImpactFactors: map[scoring.Category]int{
			scoring.CategoryLegal:  10,
			scoring.CategoryCredit: 20,
		},
		PropagationMultiplier: 1.8,
	}

	record, err := NewScenarioRecord(config)
	require.NoError(t, err)

	decoded, err := record.Config()
	require.NoError(t, err)
	assert.Equal(t, config, decoded)
}
