package domain

import (
	"context"
	"errors"
)

// ErrAccessorUnavailable 图存取器 I/O 故障
// 必须向调用方透传，绝不能退化为对陈旧/不完整图数据继续评分
var ErrAccessorUnavailable = errors.New("graph accessor unavailable")

// ErrCompanyNotFound 公司不存在
var ErrCompanyNotFound = errors.New("company not found")

// EntityEvents 主体及其持有的事件
type EntityEvents struct {
	Entity RiskEntity
	Events []RiskEvent
}

// RelatedCompany 关联公司及供应链层级
type RelatedCompany struct {
	Company Company
	Tier    int
}

// GraphRepository 公司/类别/主体/事件层级图的存取接口
// 评分核心只通过它读写，连接生命周期由外层服务持有
type GraphRepository interface {
	// Company 读取公司，不存在时返回 ErrCompanyNotFound
	Company(ctx context.Context, companyID string) (*Company, error)
	// CompaniesBySector 按行业读取公司列表
	CompaniesBySector(ctx context.Context, sectors []string) ([]Company, error)
	// EntityEventsByCompany 读取公司全层级的主体及事件
	EntityEventsByCompany(ctx context.Context, companyID string) ([]EntityEvents, error)
	// CompanyCategories 读取公司的风险类别
	CompanyCategories(ctx context.Context, companyID string) ([]RiskCategory, error)
	// RelatedCompanies 读取公司的关联公司边
	RelatedCompanies(ctx context.Context, companyID string) ([]RelatedCompany, error)
	// CommitScorePass 将一次重算的全部写入作为单个逻辑单元提交
	// 任何一步失败时已持久化的分数保持原状
	CommitScorePass(ctx context.Context, pass *ScorePass) error
}
