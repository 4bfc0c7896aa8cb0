package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// PlanRepository 生产计划仓库
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindAll 查询计划列表
func (r *PlanRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionPlan, int64, error) {
	var items []entity.ProductionPlan
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionPlan{})

	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := filters["priority"]; priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("plan_no ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找计划（含工序，按step_order升序）
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*entity.ProductionPlan, error) {
	var plan entity.ProductionPlan
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Create 创建计划
func (r *PlanRepository) Create(ctx context.Context, plan *entity.ProductionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// Update 更新计划
func (r *PlanRepository) Update(ctx context.Context, plan *entity.ProductionPlan) error {
	return r.db.WithContext(ctx).Omit("Steps").Save(plan).Error
}

// FindSteps 查询计划的工序集（按step_order升序）
func (r *PlanRepository) FindSteps(ctx context.Context, planID string) ([]entity.ProductionStep, error) {
	var steps []entity.ProductionStep
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("step_order ASC").
		Find(&steps).Error
	return steps, err
}

// FindStepByID 查找单个工序
func (r *PlanRepository) FindStepByID(ctx context.Context, stepID string) (*entity.ProductionStep, error) {
	var step entity.ProductionStep
	err := r.db.WithContext(ctx).Where("id = ?", stepID).First(&step).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &step, nil
}

// CountRemainingStepsTx 统计计划内除excludeStepID外仍未终结(pending/in_progress)的工序数。
// 把“是否最后一道工序”变成显式可查询的事实，而不是按位置推断；在调用方事务内执行。
func (r *PlanRepository) CountRemainingStepsTx(tx *gorm.DB, planID, excludeStepID string) (int64, error) {
	var count int64
	err := tx.
		Model(&entity.ProductionStep{}).
		Where("plan_id = ? AND id <> ? AND status IN ?", planID, excludeStepID,
			[]string{entity.StepStatusPending, entity.StepStatusInProgress}).
		Count(&count).Error
	return count, err
}

// GenerateCode 生成计划编号 PP-{year}-{4位}
func (r *PlanRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PP-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionPlan{}).
		Select("COALESCE(MAX(plan_no), '')").
		Where("plan_no LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "PP-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("PP-%s-%04d", year, seq), nil
}
