package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanService 生产计划服务
type PlanService struct {
	planRepo  *repository.PlanRepository
	eventRepo *repository.TrackingEventRepository
	db        *gorm.DB
}

func NewPlanService(planRepo *repository.PlanRepository, eventRepo *repository.TrackingEventRepository, db *gorm.DB) *PlanService {
	return &PlanService{planRepo: planRepo, eventRepo: eventRepo, db: db}
}

// CreatePlanRequest 创建计划请求
type CreatePlanRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" binding:"omitempty,oneof=normal high"`
}

// ListPlans 计划列表
func (s *PlanService) ListPlans(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionPlan, int64, error) {
	return s.planRepo.FindAll(ctx, page, pageSize, filters)
}

// GetPlan 计划详情（含工序）
func (s *PlanService) GetPlan(ctx context.Context, id string) (*entity.ProductionPlan, error) {
	return s.planRepo.FindByID(ctx, id)
}

// GetSteps 计划工序集
func (s *PlanService) GetSteps(ctx context.Context, planID string) ([]entity.ProductionStep, error) {
	if _, err := s.planRepo.FindByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.planRepo.FindSteps(ctx, planID)
}

// CreatePlan 创建计划
func (s *PlanService) CreatePlan(ctx context.Context, userID string, req *CreatePlanRequest) (*entity.ProductionPlan, error) {
	planNo, err := s.planRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成计划编号失败: %w", err)
	}

	plan := &entity.ProductionPlan{
		ID:          uuid.New().String()[:32],
		PlanNo:      planNo,
		OrderID:     req.OrderID,
		Description: req.Description,
		Status:      entity.PlanStatusPending,
		Priority:    req.Priority,
		CreatedBy:   userID,
	}
	if plan.Priority == "" {
		plan.Priority = entity.PlanPriorityNormal
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// CancelPlan 取消计划（工序一并取消）
func (s *PlanService) CancelPlan(ctx context.Context, id, operatorID string) (*entity.ProductionPlan, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.ProductionPlan{}).
			Where("id = ?", plan.ID).
			Updates(map[string]interface{}{
				"status":     entity.PlanStatusCancelled,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.ProductionStep{}).
			Where("plan_id = ? AND status IN ?", plan.ID,
				[]string{entity.StepStatusPending, entity.StepStatusInProgress}).
			Update("status", entity.StepStatusCancelled).Error; err != nil {
			return err
		}
		return s.eventRepo.AppendTx(tx, &entity.TrackingEvent{
			EntityType: "plan",
			EntityID:   plan.ID,
			EntityCode: plan.PlanNo,
			Action:     entity.EventActionPlanCancelled,
			FromStatus: plan.Status,
			ToStatus:   entity.PlanStatusCancelled,
			OperatorID: operatorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.planRepo.FindByID(ctx, id)
}

// StartStep 人工开工：记录实际开工时间
func (s *PlanService) StartStep(ctx context.Context, stepID, operatorID string) (*entity.ProductionStep, error) {
	step, err := s.planRepo.FindStepByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if step.Status != entity.StepStatusPending {
		return nil, fmt.Errorf("工序当前状态不可开工: %s", step.Status)
	}

	now := time.Now()
	step.ActualStart = &now
	step.Status = entity.StepStatusInProgress

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(step).Error; err != nil {
			return err
		}
		return s.eventRepo.AppendTx(tx, &entity.TrackingEvent{
			EntityType: "step",
			EntityID:   step.ID,
			Action:     entity.EventActionStepStarted,
			FromStatus: entity.StepStatusPending,
			ToStatus:   entity.StepStatusInProgress,
			OperatorID: operatorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// CompleteStep 人工完工：记录实际完工时间
func (s *PlanService) CompleteStep(ctx context.Context, stepID, operatorID string) (*entity.ProductionStep, error) {
	step, err := s.planRepo.FindStepByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if step.Status == entity.StepStatusCompleted || step.Status == entity.StepStatusCancelled {
		return nil, fmt.Errorf("工序已终结: %s", step.Status)
	}

	now := time.Now()
	if step.ActualStart == nil {
		step.ActualStart = &now
	}
	step.ActualEnd = &now
	fromStatus := step.Status
	step.Status = entity.StepStatusCompleted

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(step).Error; err != nil {
			return err
		}
		return s.eventRepo.AppendTx(tx, &entity.TrackingEvent{
			EntityType: "step",
			EntityID:   step.ID,
			Action:     entity.EventActionStepCompleted,
			FromStatus: fromStatus,
			ToStatus:   entity.StepStatusCompleted,
			OperatorID: operatorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}
