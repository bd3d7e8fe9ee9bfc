package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var aggregatorNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestAggregator() *HierarchyAggregator {
	a := NewHierarchyAggregator()
	a.now = func() time.Time { return aggregatorNow }
	return a
}

// 十个等权类别，合计 1.0
func testCategories(companyID string) []RiskCategory {
	codes := []Category{
		CategoryShareholding, CategoryExecutive, CategoryCredit, CategoryLegal,
		CategoryGovernance, CategoryOperational, CategoryAudit, CategoryESG,
		CategorySupplyChain, CategoryOther,
	}
	categories := make([]RiskCategory, 0, len(codes))
	for _, code := range codes {
		categories = append(categories, RiskCategory{
			ID:        companyID + "-cat-" + string(code),
			CompanyID: companyID,
			Code:      code,
			Name:      string(code),
			Weight:    decimal.NewFromFloat(0.1),
		})
	}
	return categories
}

func testCompany(id string, total int) *Company {
	return &Company{ID: id, Name: id, Sector: "반도체", TotalRiskScore: total}
}

func TestBuildPassSingleFreshEvent(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")
	legalCatID := "c1-cat-" + string(CategoryLegal)

	groups := []EntityEvents{
		{
			Entity: RiskEntity{ID: "e1", CategoryID: legalCatID, Type: EntityTypePerson},
			Events: []RiskEvent{
				{ID: "ev1", EntityID: "e1", RawScore: 100, PublishedAt: aggregatorNow.AddDate(0, 0, -1)},
			},
		},
	}

	pass, err := a.BuildPass(company, groups, categories, nil)
	require.NoError(t, err)

	require.Len(t, pass.Entities, 1)
	assert.Equal(t, 100, pass.Entities[0].Score)
	assert.Equal(t, 1, pass.Entities[0].EventCount)

	var legal *CategoryScoreWrite
	for i := range pass.Categories {
		if pass.Categories[i].CategoryID == legalCatID {
			legal = &pass.Categories[i]
		}
	}
	require.NotNil(t, legal)
	assert.Equal(t, 100, legal.Score)
	assert.True(t, legal.WeightedScore.Equal(decimal.NewFromFloat(10.0)),
		"weighted score should be 100 × 0.1, got %s", legal.WeightedScore)
	assert.Equal(t, TrendUp, legal.Trend)

	// direct = 100 × 0.1，加成 = 单个重大事件 15 + 特重事件 10
	assert.Equal(t, 10, pass.Company.DirectScore)
	assert.Equal(t, 0, pass.Company.PropagatedScore)
	assert.Equal(t, 25, pass.Company.Boost)
	assert.Equal(t, 35, pass.Company.TotalRiskScore)
	assert.Equal(t, StatusWarning, pass.Company.RiskLevel)
	assert.Equal(t, TrendUp, pass.Company.Trend)
	assert.Equal(t, 1, pass.CriticalCount)
}

func TestBuildPassEventAgeTiers(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")
	legalCatID := "c1-cat-" + string(CategoryLegal)

	cases := []struct {
		daysOld  int
		expected int
	}{
		{0, 60},    // ×1.00
		{5, 48},    // ×0.80
		{10, 33},   // ×0.55
		{20, 18},   // ×0.30
		{45, 9},    // ×0.15
		{100, 3},   // ×0.05
	}
	for _, tc := range cases {
		groups := []EntityEvents{
			{
				Entity: RiskEntity{ID: "e1", CategoryID: legalCatID},
				Events: []RiskEvent{
					{ID: "ev1", EntityID: "e1", RawScore: 60, PublishedAt: aggregatorNow.AddDate(0, 0, -tc.daysOld)},
				},
			},
		}
		pass, err := a.BuildPass(company, groups, categories, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, pass.Entities[0].Score, "event aged %d days", tc.daysOld)
	}
}

func TestBuildPassSkipsNonPositiveEvents(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")
	legalCatID := "c1-cat-" + string(CategoryLegal)

	groups := []EntityEvents{
		{
			Entity: RiskEntity{ID: "e1", CategoryID: legalCatID},
			Events: []RiskEvent{
				{ID: "ev1", EntityID: "e1", RawScore: 0, PublishedAt: aggregatorNow},
				{ID: "ev2", EntityID: "e1", RawScore: -10, PublishedAt: aggregatorNow},
			},
		},
	}

	pass, err := a.BuildPass(company, groups, categories, nil)
	require.NoError(t, err)
	assert.Zero(t, pass.Entities[0].Score)
	assert.Zero(t, pass.Entities[0].EventCount)
	assert.Zero(t, pass.Company.TotalRiskScore)
}

func TestBuildPassPropagationCappedAt30(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")

	related := []RelatedCompany{
		{Company: Company{ID: "s1", TotalRiskScore: 100}, Tier: 1},
		{Company: Company{ID: "s2", TotalRiskScore: 100}, Tier: 1},
		{Company: Company{ID: "s3", TotalRiskScore: 100}, Tier: 1},
		{Company: Company{ID: "s4", TotalRiskScore: 100}, Tier: 1},
		{Company: Company{ID: "s5", TotalRiskScore: 100}, Tier: 1},
	}

	pass, err := a.BuildPass(company, nil, categories, related)
	require.NoError(t, err)
	// 0.3 × 500 = 150，封顶 30
	assert.Equal(t, 30, pass.Company.PropagatedScore)
}

func TestBuildPassPropagationTierRates(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")

	related := []RelatedCompany{
		{Company: Company{ID: "s1", TotalRiskScore: 50}, Tier: 1},
		{Company: Company{ID: "s2", TotalRiskScore: 50}, Tier: 2},
	}

	pass, err := a.BuildPass(company, nil, categories, related)
	require.NoError(t, err)
	// 50×0.3 + 50×0.1 = 20
	assert.Equal(t, 20, pass.Company.PropagatedScore)
}

func TestBuildPassCriticalBoost(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")
	legalCatID := "c1-cat-" + string(CategoryLegal)

	// 三个 rawScore≥80 的事件触发满额加成
	groups := []EntityEvents{
		{
			Entity: RiskEntity{ID: "e1", CategoryID: legalCatID},
			Events: []RiskEvent{
				{ID: "ev1", EntityID: "e1", RawScore: 80, PublishedAt: aggregatorNow},
				{ID: "ev2", EntityID: "e1", RawScore: 85, PublishedAt: aggregatorNow},
				{ID: "ev3", EntityID: "e1", RawScore: 90, PublishedAt: aggregatorNow},
			},
		},
	}
	pass, err := a.BuildPass(company, groups, categories, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, pass.CriticalCount)
	assert.Equal(t, 30, pass.Company.Boost)

	// 单个特重事件：15 + 10
	groups[0].Events = []RiskEvent{
		{ID: "ev1", EntityID: "e1", RawScore: 96, PublishedAt: aggregatorNow},
	}
	pass, err = a.BuildPass(company, groups, categories, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pass.CriticalCount)
	assert.Equal(t, 25, pass.Company.Boost)
}

func TestBuildPassTotalClampedAt100(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 100)
	categories := testCategories("c1")

	// 每个类别放一个满分主体：direct=100，加上传导与加成后必须收敛到 100
	groups := make([]EntityEvents, 0, len(categories))
	for i, cat := range categories {
		groups = append(groups, EntityEvents{
			Entity: RiskEntity{ID: fmt.Sprintf("e%d", i), CategoryID: cat.ID},
			Events: []RiskEvent{
				{ID: fmt.Sprintf("ev%d", i), EntityID: fmt.Sprintf("e%d", i), RawScore: 100, PublishedAt: aggregatorNow},
			},
		})
	}
	related := []RelatedCompany{{Company: Company{ID: "s1", TotalRiskScore: 100}, Tier: 1}}

	pass, err := a.BuildPass(company, groups, categories, related)
	require.NoError(t, err)
	assert.Equal(t, 100, pass.Company.TotalRiskScore)
	assert.Equal(t, StatusFail, pass.Company.RiskLevel)
	assert.Equal(t, TrendStable, pass.Company.Trend, "score pinned at the cap should not report a trend change")
}

func TestBuildPassCategoryScoreClampedAt200(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")
	legalCatID := "c1-cat-" + string(CategoryLegal)

	// 三个满分主体将类别分推到 300，应收敛到 200
	groups := []EntityEvents{
		{Entity: RiskEntity{ID: "e1", CategoryID: legalCatID}, Events: []RiskEvent{{ID: "a", EntityID: "e1", RawScore: 100, PublishedAt: aggregatorNow}}},
		{Entity: RiskEntity{ID: "e2", CategoryID: legalCatID}, Events: []RiskEvent{{ID: "b", EntityID: "e2", RawScore: 100, PublishedAt: aggregatorNow}}},
		{Entity: RiskEntity{ID: "e3", CategoryID: legalCatID}, Events: []RiskEvent{{ID: "c", EntityID: "e3", RawScore: 100, PublishedAt: aggregatorNow}}},
	}

	pass, err := a.BuildPass(company, groups, categories, nil)
	require.NoError(t, err)

	for _, c := range pass.Categories {
		if c.CategoryID == legalCatID {
			assert.Equal(t, 200, c.Score)
			assert.Equal(t, 3, c.EntityCount)
		}
	}
}

func TestBuildPassTrendComparesAgainstSnapshot(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 50)
	categories := testCategories("c1")
	legalCatID := "c1-cat-" + string(CategoryLegal)
	for i := range categories {
		if categories[i].ID == legalCatID {
			categories[i].Score = 80
		}
	}

	groups := []EntityEvents{
		{
			Entity: RiskEntity{ID: "e1", CategoryID: legalCatID},
			Events: []RiskEvent{{ID: "ev1", EntityID: "e1", RawScore: 40, PublishedAt: aggregatorNow}},
		},
	}

	pass, err := a.BuildPass(company, groups, categories, nil)
	require.NoError(t, err)

	for _, c := range pass.Categories {
		if c.CategoryID == legalCatID {
			assert.Equal(t, TrendDown, c.Trend, "category fell from 80 to 40")
		}
	}
	assert.Equal(t, TrendDown, pass.Company.Trend, "company fell from 50")
}

func TestBuildPassRejectsBadWeights(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)

	categories := []RiskCategory{
		{ID: "c1-cat-LEGAL", CompanyID: "c1", Code: CategoryLegal, Weight: decimal.NewFromFloat(0.5)},
	}
	_, err := a.BuildPass(company, nil, categories, nil)
	assert.Error(t, err, "weights summing to 0.5 must be rejected")

	_, err = a.BuildPass(company, nil, nil, nil)
	assert.Error(t, err, "company without categories must be rejected")
}

func TestBuildPassRejectsUnknownCategoryReference(t *testing.T) {
	a := newTestAggregator()
	company := testCompany("c1", 0)
	categories := testCategories("c1")

	groups := []EntityEvents{
		{Entity: RiskEntity{ID: "e1", CategoryID: "missing"}, Events: nil},
	}
	_, err := a.BuildPass(company, groups, categories, nil)
	assert.Error(t, err)
}

func TestValidateCategoryWeights(t *testing.T) {
	assert.NoError(t, ValidateCategoryWeights(testCategories("c1")))

	bad := testCategories("c1")
	bad[0].Weight = decimal.NewFromFloat(-0.1)
	assert.Error(t, ValidateCategoryWeights(bad))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5, 100))
	assert.Equal(t, 100, ClampScore(250, 100))
	assert.Equal(t, 42, ClampScore(42, 100))
}
