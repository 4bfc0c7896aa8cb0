package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// RouteTemplateRepository 工艺路线模板仓库
type RouteTemplateRepository struct {
	db *gorm.DB
}

func NewRouteTemplateRepository(db *gorm.DB) *RouteTemplateRepository {
	return &RouteTemplateRepository{db: db}
}

// FindAll 查询模板列表
func (r *RouteTemplateRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RouteTemplate, int64, error) {
	var items []entity.RouteTemplate
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.RouteTemplate{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("code ILIKE ? OR name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找模板（含工序，按sequence升序）
func (r *RouteTemplateRepository) FindByID(ctx context.Context, id string) (*entity.RouteTemplate, error) {
	var tpl entity.RouteTemplate
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// Create 创建模板及工序
func (r *RouteTemplateRepository) Create(ctx context.Context, tpl *entity.RouteTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// Update 更新模板头
func (r *RouteTemplateRepository) Update(ctx context.Context, tpl *entity.RouteTemplate) error {
	return r.db.WithContext(ctx).Omit("Steps").Save(tpl).Error
}

// ReplaceSteps 整体替换模板工序
func (r *RouteTemplateRepository) ReplaceSteps(ctx context.Context, templateID string, steps []entity.RouteTemplateStep) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", templateID).Delete(&entity.RouteTemplateStep{}).Error; err != nil {
			return err
		}
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return err
			}
		}
		return tx.Model(&entity.RouteTemplate{}).
			Where("id = ?", templateID).
			Update("updated_at", time.Now()).Error
	})
}

// Delete 删除模板及工序
func (r *RouteTemplateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&entity.RouteTemplateStep{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.RouteTemplate{}).Error
	})
}

// GenerateCode 生成模板编码 RT-{year}-{4位}
func (r *RouteTemplateRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("RT-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.RouteTemplate{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "RT-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("RT-%s-%04d", year, seq), nil
}
