package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	summaryCacheKey = "mes:tracking:summary"
	summaryCacheTTL = 30 * time.Second
)

// TrackingService 跟踪看板读模型
type TrackingService struct {
	db        *gorm.DB
	rdb       *redis.Client
	mvRepo    *repository.MovementRepository
	eventRepo *repository.TrackingEventRepository
}

func NewTrackingService(db *gorm.DB, rdb *redis.Client, mvRepo *repository.MovementRepository, eventRepo *repository.TrackingEventRepository) *TrackingService {
	return &TrackingService{db: db, rdb: rdb, mvRepo: mvRepo, eventRepo: eventRepo}
}

// DepartmentCount 部门在制分布
type DepartmentCount struct {
	DepartmentID string `json:"department_id"`
	CardCount    int    `json:"card_count"`
}

// TrackingSummary 跟踪总览
type TrackingSummary struct {
	TotalCards     int               `json:"total_cards"`
	CreatedCards   int               `json:"created_cards"`
	InProcessCards int               `json:"in_process_cards"`
	CompletedCards int               `json:"completed_cards"`
	RejectedCards  int               `json:"rejected_cards"`
	OpenMovements  int               `json:"open_movements"`
	ByDepartment   []DepartmentCount `json:"by_department"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// GetTrackingSummary 跟踪总览（redis缓存30s，缓存不可用时直接查库）
func (s *TrackingService) GetTrackingSummary(ctx context.Context) (*TrackingSummary, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, summaryCacheKey).Bytes(); err == nil {
			var cached TrackingSummary
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	summary := &TrackingSummary{GeneratedAt: time.Now()}

	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN status = 'created' THEN 1 END) as created,
			COUNT(CASE WHEN status = 'in_process' THEN 1 END) as in_process,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) as completed,
			COUNT(CASE WHEN status = 'rejected' THEN 1 END) as rejected
		FROM mes_production_cards
	`).Row()
	if err := row.Scan(
		&summary.TotalCards,
		&summary.CreatedCards,
		&summary.InProcessCards,
		&summary.CompletedCards,
		&summary.RejectedCards,
	); err != nil {
		return nil, err
	}

	open, err := s.mvRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}
	summary.OpenMovements = int(open)

	// 在制卡的部门分布
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT current_department_id, COUNT(*)
		FROM mes_production_cards
		WHERE status IN ('created', 'in_process')
		GROUP BY current_department_id
		ORDER BY COUNT(*) DESC
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dc DepartmentCount
		if err := rows.Scan(&dc.DepartmentID, &dc.CardCount); err != nil {
			return nil, err
		}
		summary.ByDepartment = append(summary.ByDepartment, dc)
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(summary); err == nil {
			s.rdb.Set(ctx, summaryCacheKey, raw, summaryCacheTTL)
		}
	}
	return summary, nil
}

// DelayedStep 延误工序
type DelayedStep struct {
	StepID       string    `json:"step_id"`
	PlanID       string    `json:"plan_id"`
	PlanNo       string    `json:"plan_no"`
	StepOrder    int       `json:"step_order"`
	DepartmentID string    `json:"department_id"`
	Status       string    `json:"status"`
	PlannedEnd   time.Time `json:"planned_end"`
	DelayHours   float64   `json:"delay_hours"`
}

// GetDelayedSteps 延误检测：计划结束时间已过仍未终结的工序
func (s *TrackingService) GetDelayedSteps(ctx context.Context) ([]DelayedStep, error) {
	var delayed []DelayedStep
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			st.id as step_id,
			st.plan_id,
			p.plan_no,
			st.step_order,
			st.department_id,
			st.status,
			st.planned_end,
			EXTRACT(EPOCH FROM (NOW() - st.planned_end)) / 3600 as delay_hours
		FROM mes_production_steps st
		JOIN mes_production_plans p ON p.id = st.plan_id
		WHERE st.status IN ('pending', 'in_progress')
		  AND st.planned_end < NOW()
		  AND p.status NOT IN ('cancelled', 'completed')
		ORDER BY st.planned_end ASC
	`).Scan(&delayed).Error
	return delayed, err
}

// ListEvents 事件列表
func (s *TrackingService) ListEvents(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.TrackingEvent, int64, error) {
	return s.eventRepo.FindAll(ctx, page, pageSize, filters)
}
