package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEmptyTextReturnsZeroResult(t *testing.T) {
	m := NewKeywordMatcher()

	result := m.Match("", SourceFiling)

	assert.Zero(t, result.RawScore)
	assert.Zero(t, result.KeywordCount)
	assert.Empty(t, result.Matched)
	assert.Empty(t, result.PrimaryCategory)
}

func TestMatchNoHitReturnsZeroResult(t *testing.T) {
	m := NewKeywordMatcher()

	result := m.Match("실적 호조 및 신제품 출시", SourceFiling)

	assert.Zero(t, result.RawScore)
	assert.Zero(t, result.KeywordCount)
	assert.Empty(t, result.PrimaryCategory)
}

func TestMatchPicksHighestScoreAsPrimary(t *testing.T) {
	m := NewKeywordMatcher()

	result := m.Match("대표이사 횡령 혐의로 파산 위기", SourceFiling)

	assert.Equal(t, 60, result.RawScore)
	assert.Equal(t, CategoryCredit, result.PrimaryCategory)
	assert.Equal(t, 2, result.KeywordCount)
}

func TestMatchCountsRepeatedOccurrences(t *testing.T) {
	m := NewKeywordMatcher()

	result := m.Match("횡령 혐의 부인에도 횡령 정황 추가 확인", SourceFiling)

	// 同一关键词出现两次计为两次命中，rawScore 仍取最大值
	assert.Equal(t, 2, result.KeywordCount)
	assert.Equal(t, 50, result.RawScore)
	assert.Equal(t, CategoryLegal, result.PrimaryCategory)
	require.Len(t, result.Matched, 2)
	assert.Less(t, result.Matched[0].Position, result.Matched[1].Position)
}

func TestMatchAuditSourceUsesAuditTable(t *testing.T) {
	m := NewKeywordMatcher()

	result := m.Match("감사인은 의견거절을 표명하였다", SourceAudit)

	require.Equal(t, 1, result.KeywordCount)
	assert.Equal(t, 70, result.RawScore)
	assert.Equal(t, CategoryAudit, result.PrimaryCategory)
}

func TestMatchUnknownSourceFallsBackToPrimaryTable(t *testing.T) {
	m := NewKeywordMatcher()

	result := m.Match("횡령 사건 발생", Source("telegram"))

	require.Equal(t, 1, result.KeywordCount)
	assert.Equal(t, 50, result.RawScore)
	assert.Equal(t, CategoryLegal, result.PrimaryCategory)
}

func TestMatchTieKeepsFirstEntryInTableOrder(t *testing.T) {
	tables := map[Source][]KeywordEntry{
		SourceNews: {
			{Keyword: "가", Score: 40, Category: CategoryLegal},
			{Keyword: "나", Score: 40, Category: CategoryCredit},
		},
	}
	m, err := NewKeywordMatcherWithTables(tables, SourceNews)
	require.NoError(t, err)

	result := m.Match("가 그리고 나", SourceNews)

	assert.Equal(t, 40, result.RawScore)
	assert.Equal(t, CategoryLegal, result.PrimaryCategory)
	assert.Equal(t, 2, result.KeywordCount)
}

func TestNewKeywordMatcherWithTablesRejectsBadData(t *testing.T) {
	_, err := NewKeywordMatcherWithTables(nil, SourceFiling)
	assert.Error(t, err)

	_, err = NewKeywordMatcherWithTables(map[Source][]KeywordEntry{
		SourceNews: {{Keyword: "가", Score: 10, Category: CategoryLegal}},
	}, SourceFiling)
	assert.Error(t, err, "primary source without table must be rejected")

	_, err = NewKeywordMatcherWithTables(map[Source][]KeywordEntry{
		SourceFiling: {{Keyword: "가", Score: 120, Category: CategoryLegal}},
	}, SourceFiling)
	assert.Error(t, err, "score above 100 must be rejected")

	_, err = NewKeywordMatcherWithTables(map[Source][]KeywordEntry{
		SourceFiling: {{Keyword: "", Score: 10, Category: CategoryLegal}},
	}, SourceFiling)
	assert.Error(t, err, "empty keyword must be rejected")
}

func TestClassify(t *testing.T) {
	m := NewKeywordMatcher()

	assert.Equal(t, CategoryLegal, m.Classify("횡령"))
	assert.Equal(t, CategoryAudit, m.Classify("의견거절"))
	assert.Equal(t, CategoryOther, m.Classify("전혀 모르는 단어"))
}

func TestAggregateByCategoryTakesMaxPerCategory(t *testing.T) {
	matched := []MatchedKeyword{
		{Keyword: "소송", Score: 40, Category: CategoryLegal},
		{Keyword: "횡령", Score: 50, Category: CategoryLegal},
		{Keyword: "파산", Score: 60, Category: CategoryCredit},
	}

	breakdown := AggregateByCategory(matched)

	assert.Equal(t, 50, breakdown[CategoryLegal], "same-category hits take the max, not the sum")
	assert.Equal(t, 60, breakdown[CategoryCredit])
	assert.Len(t, breakdown, 2)
}

func TestReliabilityOf(t *testing.T) {
	assert.Equal(t, 1.0, ReliabilityOf(SourceFiling))
	assert.Equal(t, 1.0, ReliabilityOf(SourceAudit))
	assert.Equal(t, 0.95, ReliabilityOf(SourceExchange))
	assert.Equal(t, 0.85, ReliabilityOf(SourceNews))
	assert.Equal(t, 0.9, ReliabilityOf(Source("unknown")))
}
