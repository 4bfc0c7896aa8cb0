package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// MovementRepository 流转记录仓库
type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// FindByID 根据ID查找流转记录
func (r *MovementRepository) FindByID(ctx context.Context, id string) (*entity.CardMovement, error) {
	var mv entity.CardMovement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&mv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &mv, nil
}

// FindByCard 查询某卡全部流转记录（按start_time升序，审计视图）
func (r *MovementRepository) FindByCard(ctx context.Context, cardID string) ([]entity.CardMovement, error) {
	var items []entity.CardMovement
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("start_time ASC").
		Find(&items).Error
	return items, err
}

// Create 创建流转记录
func (r *MovementRepository) Create(ctx context.Context, mv *entity.CardMovement) error {
	return r.db.WithContext(ctx).Create(mv).Error
}

// CountOpen 当前未关闭流转记录总数（看板用）
func (r *MovementRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.CardMovement{}).
		Where("end_time IS NULL").
		Count(&count).Error
	return count, err
}
