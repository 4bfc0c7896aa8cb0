package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// CardRepository 流转卡仓库
type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// FindAll 查询流转卡列表
func (r *CardRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionCard, int64, error) {
	var items []entity.ProductionCard
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionCard{})

	if planID := filters["plan_id"]; planID != "" {
		query = query.Where("plan_id = ?", planID)
	}
	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if deptID := filters["department_id"]; deptID != "" {
		query = query.Where("current_department_id = ?", deptID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("card_no ILIKE ? OR barcode ILIKE ?", "%"+search+"%", "%"+search+"%")
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

// FindByID 根据ID查找流转卡
func (r *CardRepository) FindByID(ctx context.Context, id string) (*entity.ProductionCard, error) {
	var card entity.ProductionCard
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

// FindByBarcode 扫码入口：根据条码查找流转卡
func (r *CardRepository) FindByBarcode(ctx context.Context, barcode string) (*entity.ProductionCard, error) {
	var card entity.ProductionCard
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

// ExistsBarcode 条码是否已占用
func (r *CardRepository) ExistsBarcode(ctx context.Context, barcode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionCard{}).
		Where("barcode = ?", barcode).
		Count(&count).Error
	return count > 0, err
}

// Create 创建流转卡
func (r *CardRepository) Create(ctx context.Context, card *entity.ProductionCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// Update 更新流转卡
func (r *CardRepository) Update(ctx context.Context, card *entity.ProductionCard) error {
	return r.db.WithContext(ctx).Save(card).Error
}

// IncrementPrintCount 打印计数+1并返回最新卡
func (r *CardRepository) IncrementPrintCount(ctx context.Context, id string) (*entity.ProductionCard, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.ProductionCard{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"print_count":   gorm.Expr("print_count + 1"),
			"last_print_at": now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}
