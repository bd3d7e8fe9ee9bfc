// 包 风险评分服务的领域模型、实体、聚合、值对象、领域服务、仓储接口
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status 风险状态等级
type Status string

const (
	StatusPass    Status = "PASS"
	StatusWarning Status = "WARNING"
	StatusFail    Status = "FAIL"
)

// Sentiment 信号情绪
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentCaution  Sentiment = "CAUTION"
	SentimentNegative Sentiment = "NEGATIVE"
)

// Trend 分数趋势
type Trend string

const (
	TrendUp     Trend = "UP"
	TrendDown   Trend = "DOWN"
	TrendStable Trend = "STABLE"
)

// Category 风险类别
type Category string

const (
	CategoryShareholding Category = "SHAREHOLDING"
	CategoryExecutive    Category = "EXECUTIVE"
	CategoryCredit       Category = "CREDIT"
	CategoryLegal        Category = "LEGAL"
	CategoryGovernance   Category = "GOVERNANCE"
	CategoryOperational  Category = "OPERATIONAL"
	CategoryAudit        Category = "AUDIT"
	CategoryESG          Category = "ESG"
	CategorySupplyChain  Category = "SUPPLY_CHAIN"
	CategoryOther        Category = "OTHER"
)

// EventType 风险事件类型
type EventType string

const (
	EventTypeNews       EventType = "NEWS"
	EventTypeDisclosure EventType = "DISCLOSURE"
	EventTypeIssue      EventType = "ISSUE"
)

// EntityType 风险主体类型
type EntityType string

const (
	EntityTypePerson      EntityType = "PERSON"
	EntityTypeShareholder EntityType = "SHAREHOLDER"
	EntityTypeCase        EntityType = "CASE"
	EntityTypeIssue       EntityType = "ISSUE"
	EntityTypeOther       EntityType = "OTHER"
)

// Company 公司聚合根
type Company struct {
	gorm.Model
	ID              string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Name            string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Sector          string `gorm:"column:sector;type:varchar(64);index" json:"sector"`
	DirectScore     int    `gorm:"column:direct_score;not null;default:0" json:"direct_score"`
	PropagatedScore int    `gorm:"column:propagated_score;not null;default:0" json:"propagated_score"`
	TotalRiskScore  int    `gorm:"column:total_risk_score;not null;default:0" json:"total_risk_score"`
	RiskLevel       Status `gorm:"column:risk_level;type:varchar(20);not null;default:PASS" json:"risk_level"`
	RiskTrend       Trend  `gorm:"column:risk_trend;type:varchar(10);not null;default:STABLE" json:"risk_trend"`
}

// RiskCategory 风险类别实体，每家公司固定十个，权重合计约 1.0
type RiskCategory struct {
	gorm.Model
	ID            string          `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	CompanyID     string          `gorm:"column:company_id;type:varchar(36);index;not null" json:"company_id"`
	Code          Category        `gorm:"column:code;type:varchar(20);not null" json:"code"`
	Name          string          `gorm:"column:name;type:varchar(64);not null" json:"name"`
	Weight        decimal.Decimal `gorm:"column:weight;type:decimal(5,4);not null" json:"weight"`
	Score         int             `gorm:"column:score;not null;default:0" json:"score"`
	WeightedScore decimal.Decimal `gorm:"column:weighted_score;type:decimal(8,4);not null;default:0" json:"weighted_score"`
	EntityCount   int             `gorm:"column:entity_count;not null;default:0" json:"entity_count"`
	EventCount    int             `gorm:"column:event_count;not null;default:0" json:"event_count"`
	Trend         Trend           `gorm:"column:trend;type:varchar(10);not null;default:STABLE" json:"trend"`
}

// RiskEntity 风险主体实体，riskScore 由聚合流程重算覆盖，禁止外部直接修改
type RiskEntity struct {
	gorm.Model
	ID         string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	CategoryID string     `gorm:"column:category_id;type:varchar(36);index;not null" json:"category_id"`
	Name       string     `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Type       EntityType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	RiskScore  int        `gorm:"column:risk_score;not null;default:0" json:"risk_score"`
	EventCount int        `gorm:"column:event_count;not null;default:0" json:"event_count"`
}

// RiskEvent 风险事件实体，由采集侧写入，归属唯一主体
type RiskEvent struct {
	gorm.Model
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	EntityID    string    `gorm:"column:entity_id;type:varchar(36);index;not null" json:"entity_id"`
	Title       string    `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Type        EventType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	RawScore    int       `gorm:"column:raw_score;not null" json:"raw_score"`
	Severity    string    `gorm:"column:severity;type:varchar(20)" json:"severity"`
	SourceName  string    `gorm:"column:source_name;type:varchar(64)" json:"source_name"`
	SourceURL   string    `gorm:"column:source_url;type:varchar(512)" json:"source_url"`
	PublishedAt time.Time `gorm:"column:published_at;type:datetime;index" json:"published_at"`
}

// CompanyRelation 公司关联边，tier 为供应链距离（1 为直接供应商）
type CompanyRelation struct {
	gorm.Model
	CompanyID string `gorm:"column:company_id;type:varchar(36);index;not null" json:"company_id"`
	RelatedID string `gorm:"column:related_id;type:varchar(36);index;not null" json:"related_id"`
	Tier      int    `gorm:"column:tier;not null;default:1" json:"tier"`
}

// 状态阈值，信号级和公司级统一使用同一套分界点
const (
	warningThreshold = 35
	failThreshold    = 60
)

// StatusFromScore 根据 0-100 分数计算状态等级
func StatusFromScore(score int) Status {
	switch {
	case score >= failThreshold:
		return StatusFail
	case score >= warningThreshold:
		return StatusWarning
	default:
		return StatusPass
	}
}

// SentimentFromScore 根据 0-100 分数计算信号情绪
func SentimentFromScore(score int) Sentiment {
	switch {
	case score < 10:
		return SentimentPositive
	case score < 30:
		return SentimentNeutral
	case score < 50:
		return SentimentCaution
	default:
		return SentimentNegative
	}
}

// TrendFromScores 比较新旧分数得到趋势
func TrendFromScores(previous, current int) Trend {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendStable
	}
}

// 权重合计的允许区间，超出视为配置数据错误
var (
	weightSumMin = decimal.NewFromFloat(0.9)
	weightSumMax = decimal.NewFromFloat(1.1)
)

// ValidateCategoryWeights 校验类别权重合计约为 1.0（容差 ±0.1）
func ValidateCategoryWeights(categories []RiskCategory) error {
	if len(categories) == 0 {
		return fmt.Errorf("company has no risk categories")
	}
	sum := decimal.Zero
	for _, c := range categories {
		if c.Weight.IsNegative() {
			return fmt.Errorf("category %s has negative weight %s", c.Code, c.Weight)
		}
		sum = sum.Add(c.Weight)
	}
	if sum.LessThan(weightSumMin) || sum.GreaterThan(weightSumMax) {
		return fmt.Errorf("category weights sum to %s, expected ~1.0", sum)
	}
	return nil
}

// ClampScore 将分数收敛到 [0, max]
func ClampScore(score, max int) int {
	if score < 0 {
		return 0
	}
	if score > max {
		return max
	}
	return score
}
