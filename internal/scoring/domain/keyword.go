package domain

import (
	"fmt"
	"strings"
)

// Source 信号来源标签，决定使用哪张关键词表及来源可信度
type Source string

const (
	SourceFiling   Source = "filing"   // 监管公示
	SourceNews     Source = "news"     // 新闻
	SourceExchange Source = "exchange" // 交易所公告
	SourceAudit    Source = "audit"    // 审计报告
)

// KeywordEntry 加权关键词条目，启动期加载的只读参考数据
type KeywordEntry struct {
	Keyword  string
	Score    int
	Category Category
}

// MatchedKeyword 单次匹配命中
type MatchedKeyword struct {
	Keyword  string   `json:"keyword"`
	Score    int      `json:"score"`
	Category Category `json:"category"`
	Position int      `json:"position"`
}

// MatchResult 关键词匹配结果
// 不变式：KeywordCount 为 0 时 RawScore 为 0 且 PrimaryCategory 为空
type MatchResult struct {
	Matched         []MatchedKeyword `json:"matched_keywords"`
	RawScore        int              `json:"raw_score"`
	PrimaryCategory Category         `json:"primary_category,omitempty"`
	KeywordCount    int              `json:"keyword_count"`
}

// KeywordMatcher 关键词匹配器，对内存中的分来源关键词表做子串扫描
type KeywordMatcher struct {
	tables  map[Source][]KeywordEntry
	primary Source
}

// NewKeywordMatcher 使用内置关键词表创建匹配器
func NewKeywordMatcher() *KeywordMatcher {
	m, err := NewKeywordMatcherWithTables(defaultKeywordTables(), SourceFiling)
	if err != nil {
		// 内置表在启动期校验，出错属于程序缺陷
		panic(err)
	}
	return m
}

// NewKeywordMatcherWithTables 使用外部关键词表创建匹配器，表数据非法时立即失败
func NewKeywordMatcherWithTables(tables map[Source][]KeywordEntry, primary Source) (*KeywordMatcher, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("keyword tables are empty")
	}
	if _, ok := tables[primary]; !ok {
		return nil, fmt.Errorf("primary source %q has no keyword table", primary)
	}
	for source, entries := range tables {
		for _, e := range entries {
			if e.Keyword == "" {
				return nil, fmt.Errorf("source %q has entry with empty keyword", source)
			}
			if e.Score < 0 || e.Score > 100 {
				return nil, fmt.Errorf("keyword %q in source %q has score %d out of [0,100]", e.Keyword, source, e.Score)
			}
		}
	}
	return &KeywordMatcher{tables: tables, primary: primary}, nil
}

// Match 对文本做全表子串扫描
// 未识别的来源回落到主表；空文本或无命中返回零值结果
func (m *KeywordMatcher) Match(text string, source Source) MatchResult {
	table, ok := m.tables[source]
	if !ok {
		table = m.tables[m.primary]
	}

	result := MatchResult{}
	if text == "" {
		return result
	}

	for _, entry := range table {
		// 同一关键词的每次出现都计为一次命中
		for start := 0; start < len(text); {
			pos := strings.Index(text[start:], entry.Keyword)
			if pos < 0 {
				break
			}
			result.Matched = append(result.Matched, MatchedKeyword{
				Keyword:  entry.Keyword,
				Score:    entry.Score,
				Category: entry.Category,
				Position: start + pos,
			})
			// 平分时保留先出现在表中的类别
			if entry.Score > result.RawScore {
				result.RawScore = entry.Score
				result.PrimaryCategory = entry.Category
			}
			start += pos + len(entry.Keyword)
		}
	}

	result.KeywordCount = len(result.Matched)
	if result.RawScore > 100 {
		result.RawScore = 100
	}
	return result
}

// Classify 跨全部来源查找关键词的类别，未知关键词归为 OTHER
func (m *KeywordMatcher) Classify(keyword string) Category {
	for _, table := range m.tables {
		for _, entry := range table {
			if entry.Keyword == keyword {
				return entry.Category
			}
		}
	}
	return CategoryOther
}

// AggregateByCategory 按类别聚合命中分数
// 同类取最大值而非求和：多个低危命中不得压过单个高危命中
func AggregateByCategory(matched []MatchedKeyword) map[Category]int {
	breakdown := make(map[Category]int, len(matched))
	for _, mk := range matched {
		if mk.Score > breakdown[mk.Category] {
			breakdown[mk.Category] = mk.Score
		}
	}
	return breakdown
}

// ReliabilityOf 来源可信度，监管公示高于新闻
func ReliabilityOf(source Source) float64 {
	switch source {
	case SourceFiling, SourceAudit:
		return 1.0
	case SourceExchange:
		return 0.95
	case SourceNews:
		return 0.85
	default:
		return 0.9
	}
}
