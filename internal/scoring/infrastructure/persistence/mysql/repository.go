// 包 风险层级图的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/riskscoring/internal/scoring/domain"
	"github.com/wyfcoding/riskscoring/pkg/db"
	"gorm.io/gorm"
)

// GraphRepository 基于 GORM 的层级图仓储
type GraphRepository struct {
	db *db.DB
}

// NewGraphRepository 创建层级图仓储
func NewGraphRepository(database *db.DB) *GraphRepository {
	return &GraphRepository{db: database}
}

// wrapAccessor 将底层存储错误统一包装为存取器不可用，调用方据此中止评分
func wrapAccessor(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrAccessorUnavailable, err)
}

// Company 读取公司
func (r *GraphRepository) Company(ctx context.Context, companyID string) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).Where("id = ?", companyID).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCompanyNotFound, companyID)
	}
	if err != nil {
		return nil, wrapAccessor(err)
	}
	return &company, nil
}

// CompaniesBySector 按行业读取公司列表，ID 升序保证遍历顺序稳定
func (r *GraphRepository) CompaniesBySector(ctx context.Context, sectors []string) ([]domain.Company, error) {
	if len(sectors) == 0 {
		return nil, nil
	}
	var companies []domain.Company
	err := r.db.WithContext(ctx).
		Where("sector IN ?", sectors).
		Order("id ASC").
		Find(&companies).Error
	if err != nil {
		return nil, wrapAccessor(err)
	}
	return companies, nil
}

// EntityEventsByCompany 读取公司全层级的主体及事件
// 三段查询代替多级 JOIN，每段的结果集都保持可控
func (r *GraphRepository) EntityEventsByCompany(ctx context.Context, companyID string) ([]domain.EntityEvents, error) {
	var categories []domain.RiskCategory
	err := r.db.WithContext(ctx).
		Select("id").
		Where("company_id = ?", companyID).
		Find(&categories).Error
	if err != nil {
		return nil, wrapAccessor(err)
	}
	if len(categories) == 0 {
		return nil, nil
	}

	categoryIDs := make([]string, 0, len(categories))
	for _, c := range categories {
		categoryIDs = append(categoryIDs, c.ID)
	}

	var entities []domain.RiskEntity
	err = r.db.WithContext(ctx).
		Where("category_id IN ?", categoryIDs).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, wrapAccessor(err)
	}
	if len(entities) == 0 {
		return nil, nil
	}

	entityIDs := make([]string, 0, len(entities))
	for _, e := range entities {
		entityIDs = append(entityIDs, e.ID)
	}

	var events []domain.RiskEvent
	err = r.db.WithContext(ctx).
		Where("entity_id IN ?", entityIDs).
		Order("published_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, wrapAccessor(err)
	}

	eventsByEntity := make(map[string][]domain.RiskEvent, len(entities))
	for _, ev := range events {
		eventsByEntity[ev.EntityID] = append(eventsByEntity[ev.EntityID], ev)
	}

	groups := make([]domain.EntityEvents, 0, len(entities))
	for _, e := range entities {
		groups = append(groups, domain.EntityEvents{
			Entity: e,
			Events: eventsByEntity[e.ID],
		})
	}
	return groups, nil
}

// CompanyCategories 读取公司的风险类别
func (r *GraphRepository) CompanyCategories(ctx context.Context, companyID string) ([]domain.RiskCategory, error) {
	var categories []domain.RiskCategory
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("code ASC").
		Find(&categories).Error
	if err != nil {
		return nil, wrapAccessor(err)
	}
	return categories, nil
}

// RelatedCompanies 读取公司的关联公司边及对方当前总分
func (r *GraphRepository) RelatedCompanies(ctx context.Context, companyID string) ([]domain.RelatedCompany, error) {
	var relations []domain.CompanyRelation
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("tier ASC, related_id ASC").
		Find(&relations).Error
	if err != nil {
		return nil, wrapAccessor(err)
	}
	if len(relations) == 0 {
		return nil, nil
	}

	relatedIDs := make([]string, 0, len(relations))
	for _, rel := range relations {
		relatedIDs = append(relatedIDs, rel.RelatedID)
	}

	var companies []domain.Company
	err = r.db.WithContext(ctx).Where("id IN ?", relatedIDs).Find(&companies).Error
	if err != nil {
		return nil, wrapAccessor(err)
	}
	companyByID := make(map[string]domain.Company, len(companies))
	for _, c := range companies {
		companyByID[c.ID] = c
	}

	related := make([]domain.RelatedCompany, 0, len(relations))
	for _, rel := range relations {
		company, ok := companyByID[rel.RelatedID]
		if !ok {
			// 悬空边，跳过并继续
			continue
		}
		related = append(related, domain.RelatedCompany{Company: company, Tier: rel.Tier})
	}
	return related, nil
}

// CommitScorePass 单事务提交一次重算的全部写入
// 任何一步失败整体回滚，已持久化的分数保持原状
func (r *GraphRepository) CommitScorePass(ctx context.Context, pass *domain.ScorePass) error {
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, e := range pass.Entities {
			result := tx.Model(&domain.RiskEntity{}).
				Where("id = ?", e.EntityID).
				Updates(map[string]any{
					"risk_score":  e.Score,
					"event_count": e.EventCount,
				})
			if result.Error != nil {
				return result.Error
			}
		}

		for _, c := range pass.Categories {
			result := tx.Model(&domain.RiskCategory{}).
				Where("id = ?", c.CategoryID).
				Updates(map[string]any{
					"score":          c.Score,
					"weighted_score": c.WeightedScore,
					"entity_count":   c.EntityCount,
					"event_count":    c.EventCount,
					"trend":          c.Trend,
				})
			if result.Error != nil {
				return result.Error
			}
		}

		result := tx.Model(&domain.Company{}).
			Where("id = ?", pass.Company.CompanyID).
			Updates(map[string]any{
				"direct_score":     pass.Company.DirectScore,
				"propagated_score": pass.Company.PropagatedScore,
				"total_risk_score": pass.Company.TotalRiskScore,
				"risk_level":       pass.Company.RiskLevel,
				"risk_trend":       pass.Company.Trend,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", domain.ErrCompanyNotFound, pass.Company.CompanyID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			return err
		}
		return wrapAccessor(err)
	}
	return nil
}
