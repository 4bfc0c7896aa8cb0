package service

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchedulingService 排程服务：把工艺路线模板展开为计划工序
type SchedulingService struct {
	tplRepo   *repository.RouteTemplateRepository
	planRepo  *repository.PlanRepository
	eventRepo *repository.TrackingEventRepository
	db        *gorm.DB
}

func NewSchedulingService(tplRepo *repository.RouteTemplateRepository, planRepo *repository.PlanRepository, eventRepo *repository.TrackingEventRepository, db *gorm.DB) *SchedulingService {
	return &SchedulingService{
		tplRepo:   tplRepo,
		planRepo:  planRepo,
		eventRepo: eventRepo,
		db:        db,
	}
}

// ApplyTemplate 套用模板：删除计划已有工序后按模板整体重建。
// 删+插在同一事务内并对计划行加锁，并发套用串行化，后写者整体胜出。
// 重新套用会丢弃已有工序的实际开工/完工时间（与源系统行为一致）。
func (s *SchedulingService) ApplyTemplate(ctx context.Context, planID, templateID string, anchorDate time.Time, operatorID string) ([]entity.ProductionStep, error) {
	tpl, err := s.tplRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if len(tpl.Steps) == 0 {
		return nil, ErrInvalidTemplate
	}

	// 锚点按天粒度取整
	anchor := time.Date(anchorDate.Year(), anchorDate.Month(), anchorDate.Day(), 0, 0, 0, 0, anchorDate.Location())

	var steps []entity.ProductionStep
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan entity.ProductionPlan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", planID).
			First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		if err := tx.Where("plan_id = ?", planID).Delete(&entity.ProductionStep{}).Error; err != nil {
			return err
		}

		steps = expandTemplate(planID, tpl.Steps, anchor)
		if err := tx.Create(&steps).Error; err != nil {
			return err
		}

		now := time.Now()
		plan.Status = entity.PlanStatusPending
		plan.PlannedStart = &steps[0].PlannedStart
		windowEnd := steps[0].PlannedEnd
		for _, st := range steps[1:] {
			if st.PlannedEnd.After(windowEnd) {
				windowEnd = st.PlannedEnd
			}
		}
		plan.PlannedEnd = &windowEnd
		plan.UpdatedAt = now
		if err := tx.Omit("Steps").Save(&plan).Error; err != nil {
			return err
		}

		return s.eventRepo.AppendTx(tx, &entity.TrackingEvent{
			EntityType: "plan",
			EntityID:   plan.ID,
			EntityCode: plan.PlanNo,
			Action:     entity.EventActionStepsApplied,
			Content:    "applied template " + tpl.Code,
			Metadata: entity.JSONB{
				"template_id": tpl.ID,
				"step_count":  len(steps),
				"anchor_date": anchor.Format("2006-01-02"),
			},
			OperatorID: operatorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// expandTemplate 纯展开：plannedStart = 锚点 + dayOffset天；
// plannedEnd = plannedStart + 预估工时（未填按24h），保证 plannedEnd > plannedStart。
func expandTemplate(planID string, tplSteps []entity.RouteTemplateStep, anchor time.Time) []entity.ProductionStep {
	steps := make([]entity.ProductionStep, 0, len(tplSteps))
	for _, ts := range tplSteps {
		start := anchor.AddDate(0, 0, ts.DayOffset)
		hours := ts.EstimatedHours
		if hours <= 0 {
			hours = 24
		}
		steps = append(steps, entity.ProductionStep{
			ID:            uuid.New().String()[:32],
			PlanID:        planID,
			StepOrder:     ts.Sequence,
			ProcessTypeID: ts.ProcessTypeID,
			DepartmentID:  ts.DepartmentID,
			MachineID:     ts.MachineID,
			PlannedStart:  start,
			PlannedEnd:    start.Add(time.Duration(hours) * time.Hour),
			Status:        entity.StepStatusPending,
			Notes:         ts.Notes,
		})
	}
	return steps
}
