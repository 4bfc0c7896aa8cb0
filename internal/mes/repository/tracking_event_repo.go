package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrackingEventRepository 跟踪事件仓库（只追加）
type TrackingEventRepository struct {
	db *gorm.DB
}

func NewTrackingEventRepository(db *gorm.DB) *TrackingEventRepository {
	return &TrackingEventRepository{db: db}
}

// Create 追加跟踪事件
func (r *TrackingEventRepository) Create(ctx context.Context, ev *entity.TrackingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

// FindAll 查询事件列表（可按实体过滤）
func (r *TrackingEventRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.TrackingEvent, int64, error) {
	var items []entity.TrackingEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.TrackingEvent{})

	if entityType := filters["entity_type"]; entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID := filters["entity_id"]; entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}
	if action := filters["action"]; action != "" {
		query = query.Where("action = ?", action)
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

// AppendTx 在既有事务内追加事件（与业务写入保持同一事务）
func (r *TrackingEventRepository) AppendTx(tx *gorm.DB, ev *entity.TrackingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()[:32]
	}
	return tx.Create(ev).Error
}
