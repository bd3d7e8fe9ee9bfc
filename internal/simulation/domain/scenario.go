package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrScenarioNotFound 情景不存在
var ErrScenarioNotFound = errors.New("scenario not found")

// ScenarioRecord 已保存情景的持久化模型，配置字段以 JSON 存储
type ScenarioRecord struct {
	gorm.Model
	ID                    string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Name                  string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Severity              Severity  `gorm:"column:severity;type:varchar(20);not null" json:"severity"`
	Sectors               string    `gorm:"column:sectors;type:varchar(512)" json:"sectors"`
	TargetIDs             string    `gorm:"column:target_ids;type:text" json:"target_ids"`
	ImpactFactors         string    `gorm:"column:impact_factors;type:text;not null" json:"impact_factors"`
	PropagationMultiplier float64   `gorm:"column:propagation_multiplier;not null;default:0" json:"propagation_multiplier"`
	LastRunAt             time.Time `gorm:"column:last_run_at;type:datetime" json:"last_run_at"`
}

// NewScenarioRecord 将情景配置编码为持久化记录
func NewScenarioRecord(config ScenarioConfig) (*ScenarioRecord, error) {
	sectors, err := json.Marshal(config.Sectors)
	if err != nil {
		return nil, fmt.Errorf("encode sectors: %w", err)
	}
	targets, err := json.Marshal(config.TargetIDs)
	if err != nil {
		return nil, fmt.Errorf("encode target ids: %w", err)
	}
	factors, err := json.Marshal(config.ImpactFactors)
	if err != nil {
		return nil, fmt.Errorf("encode impact factors: %w", err)
	}
	return &ScenarioRecord{
		ID:                    config.ID,
		Name:                  config.Name,
		Severity:              config.Severity,
		Sectors:               string(sectors),
		TargetIDs:             string(targets),
		ImpactFactors:         string(factors),
		PropagationMultiplier: config.PropagationMultiplier,
	}, nil
}

// Config 将持久化记录解码回情景配置
func (r *ScenarioRecord) Config() (ScenarioConfig, error) {
	config := ScenarioConfig{
		ID:                    r.ID,
		Name:                  r.Name,
		Severity:              r.Severity,
		PropagationMultiplier: r.PropagationMultiplier,
	}
	if r.Sectors != "" {
		if err := json.Unmarshal([]byte(r.Sectors), &config.Sectors); err != nil {
			return ScenarioConfig{}, fmt.Errorf("decode sectors: %w", err)
		}
	}
	if r.TargetIDs != "" {
		if err := json.Unmarshal([]byte(r.TargetIDs), &config.TargetIDs); err != nil {
			return ScenarioConfig{}, fmt.Errorf("decode target ids: %w", err)
		}
	}
	if r.ImpactFactors != "" {
		if err := json.Unmarshal([]byte(r.ImpactFactors), &config.ImpactFactors); err != nil {
			return ScenarioConfig{}, fmt.Errorf("decode impact factors: %w", err)
		}
	}
	return config, nil
}

// Validate 校验情景配置是否可推演
func (s ScenarioConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.ImpactFactors) == 0 {
		return fmt.Errorf("scenario has no impact factors")
	}
	for cat, delta := range s.ImpactFactors {
		if delta < -100 || delta > 100 {
			return fmt.Errorf("impact factor for %s out of range: %d", cat, delta)
		}
	}
	if len(s.Sectors) == 0 && len(s.TargetIDs) == 0 {
		return fmt.Errorf("scenario needs at least one sector or target company")
	}
	if s.PropagationMultiplier < 0 {
		return fmt.Errorf("propagation multiplier must not be negative")
	}
	return nil
}

// ScenarioRepository 情景持久化接口
type ScenarioRepository interface {
	// Save 保存情景，ID 已存在时覆盖
	Save(ctx context.Context, record *ScenarioRecord) error
	// Get 读取情景，不存在时返回 ErrScenarioNotFound
	Get(ctx context.Context, id string) (*ScenarioRecord, error)
	// List 按创建时间倒序列出已保存情景
	List(ctx context.Context, limit, offset int) ([]ScenarioRecord, error)
	// TouchLastRun 更新情景最近推演时间
	TouchLastRun(ctx context.Context, id string, at time.Time) error
}
