// 包 推演情景的 MySQL 仓储实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/riskscoring/internal/simulation/domain"
	"github.com/wyfcoding/riskscoring/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScenarioRepository 基于 GORM 的情景仓储
type ScenarioRepository struct {
	db *db.DB
}

// NewScenarioRepository 创建情景仓储
func NewScenarioRepository(database *db.DB) *ScenarioRepository {
	return &ScenarioRepository{db: database}
}

// Save 保存情景，ID 冲突时覆盖配置字段
func (r *ScenarioRepository) Save(ctx context.Context, record *domain.ScenarioRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "severity", "sectors", "target_ids",
				"impact_factors", "propagation_multiplier", "updated_at",
			}),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("save scenario %s: %w", record.ID, err)
	}
	return nil
}

// Get 读取情景
func (r *ScenarioRepository) Get(ctx context.Context, id string) (*domain.ScenarioRecord, error) {
	var record domain.ScenarioRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}
	return &record, nil
}

// List 按创建时间倒序列出已保存情景
func (r *ScenarioRepository) List(ctx context.Context, limit, offset int) ([]domain.ScenarioRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []domain.ScenarioRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return records, nil
}

// TouchLastRun 更新情景最近推演时间
func (r *ScenarioRepository) TouchLastRun(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ScenarioRecord{}).
		Where("id = ?", id).
		Update("last_run_at", at)
	if result.Error != nil {
		return fmt.Errorf("touch scenario %s: %w", id, result.Error)
	}
	return nil
}
