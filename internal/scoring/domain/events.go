package domain

import "context"

// 领域事件主题
const (
	CompanyRecomputedEventType = "risk.company.recomputed"
)

// CompanyRecomputedEvent 公司分数重算完成事件，提交成功后发布
type CompanyRecomputedEvent struct {
	CompanyID       string `json:"company_id"`
	DirectScore     int    `json:"direct_score"`
	PropagatedScore int    `json:"propagated_score"`
	Boost           int    `json:"boost"`
	TotalRiskScore  int    `json:"total_risk_score"`
	PreviousTotal   int    `json:"previous_total"`
	RiskLevel       Status `json:"risk_level"`
	Trend           Trend  `json:"trend"`
}

// EventPublisher 领域事件发布接口
// 发布失败只记录，不影响已提交的分数
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
