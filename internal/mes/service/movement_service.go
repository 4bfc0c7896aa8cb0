package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementService 流转状态机：记录卡在部门间的每一跳，并把结果回写到卡/工序。
// 卡位置与工序实际时间的更新和流转记录关闭在同一事务内，要么全部生效要么都不生效。
type MovementService struct {
	cardRepo  *repository.CardRepository
	planRepo  *repository.PlanRepository
	mvRepo    *repository.MovementRepository
	eventRepo *repository.TrackingEventRepository
	db        *gorm.DB
	hub       *sse.Hub
	logger    *zap.Logger
}

func NewMovementService(cardRepo *repository.CardRepository, planRepo *repository.PlanRepository, mvRepo *repository.MovementRepository, eventRepo *repository.TrackingEventRepository, db *gorm.DB, hub *sse.Hub, logger *zap.Logger) *MovementService {
	return &MovementService{
		cardRepo:  cardRepo,
		planRepo:  planRepo,
		mvRepo:    mvRepo,
		eventRepo: eventRepo,
		db:        db,
		hub:       hub,
		logger:    logger,
	}
}

// StartMovementRequest 开始流转请求
type StartMovementRequest struct {
	ToDepartmentID string  `json:"to_department_id" binding:"required"`
	MachineID      *string `json:"machine_id"`
	StepID         *string `json:"step_id"` // 对应的计划工序（可选）
	Notes          string  `json:"notes"`
}

// StartMovement 开始一跳流转。对卡行加锁后检查“无未关闭流转”，
// 并发对同一张卡开卡只会成功一个，另一个得到 ErrConflictingMovement。
func (s *MovementService) StartMovement(ctx context.Context, cardID, operatorID string, req *StartMovementRequest) (*entity.CardMovement, error) {
	var mv *entity.CardMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card entity.ProductionCard
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", cardID).
			First(&card).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		if card.Status == entity.CardStatusCompleted || card.Status == entity.CardStatusRejected {
			return ErrCardNotActive
		}

		var openCount int64
		if err := tx.Model(&entity.CardMovement{}).
			Where("card_id = ? AND end_time IS NULL", card.ID).
			Count(&openCount).Error; err != nil {
			return err
		}
		if openCount > 0 {
			return ErrConflictingMovement
		}

		now := time.Now()
		var from *string
		if card.CurrentDepartmentID != "" {
			dept := card.CurrentDepartmentID
			from = &dept
		}
		mv = &entity.CardMovement{
			ID:               uuid.New().String()[:32],
			CardID:           card.ID,
			FromDepartmentID: from,
			ToDepartmentID:   req.ToDepartmentID,
			StepID:           req.StepID,
			OperatorID:       operatorID,
			MachineID:        req.MachineID,
			StartTime:        now,
			Status:           entity.MovementStatusStarted,
			Notes:            req.Notes,
		}
		if err := tx.Create(mv).Error; err != nil {
			return err
		}

		// 关联工序：校验归属并记录实际开工
		if req.StepID != nil {
			var step entity.ProductionStep
			if err := tx.Where("id = ?", *req.StepID).First(&step).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return repository.ErrNotFound
				}
				return err
			}
			if step.PlanID != card.PlanID {
				return ErrStepNotInPlan
			}
			if step.Status == entity.StepStatusPending {
				step.ActualStart = &now
				step.Status = entity.StepStatusInProgress
				if err := tx.Save(&step).Error; err != nil {
					return err
				}
			}
			card.CurrentStepID = req.StepID
		}

		card.Status = entity.CardStatusInProcess
		if err := tx.Save(&card).Error; err != nil {
			return err
		}

		return s.eventRepo.AppendTx(tx, &entity.TrackingEvent{
			EntityType: "movement",
			EntityID:   mv.ID,
			EntityCode: card.CardNo,
			Action:     entity.EventActionMovementStarted,
			ToStatus:   entity.MovementStatusStarted,
			Metadata: entity.JSONB{
				"card_id":       card.ID,
				"to_department": req.ToDepartmentID,
			},
			OperatorID: operatorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(entity.EventActionMovementStarted, mv.CardID, mv.ID, mv.ToDepartmentID)
	return mv, nil
}

// CompleteMovementRequest 结束流转请求
type CompleteMovementRequest struct {
	Outcome string                  `json:"outcome" binding:"required,oneof=completed rejected"`
	Notes   string                  `json:"notes"`
	Defects []entity.MovementDefect `json:"defects"`
}

// CompleteMovement 关闭一跳流转并回写结果。
// completed：卡当前部门切到目的部门，关联工序完工；计划内再无未终结工序时卡整体完工。
// rejected：卡置为rejected，位置不变（留在拒收处等返工决策），缺陷入库。
// 已关闭的流转再次关闭返回 ErrAlreadyClosed，副作用绝不重放。
func (s *MovementService) CompleteMovement(ctx context.Context, movementID, operatorID string, req *CompleteMovementRequest) (*entity.CardMovement, error) {
	var mv entity.CardMovement
	var cardNo string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", movementID).
			First(&mv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if mv.EndTime != nil {
			return ErrAlreadyClosed
		}

		var card entity.ProductionCard
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", mv.CardID).
			First(&card).Error; err != nil {
			return err
		}
		cardNo = card.CardNo

		now := time.Now()
		mv.EndTime = &now
		mv.Status = req.Outcome
		if req.Notes != "" {
			mv.Notes = req.Notes
		}
		if len(req.Defects) > 0 {
			raw, err := json.Marshal(req.Defects)
			if err != nil {
				return err
			}
			mv.Defects = raw
		}
		if err := tx.Save(&mv).Error; err != nil {
			return err
		}

		action := entity.EventActionMovementCompleted
		if req.Outcome == entity.MovementOutcomeRejected {
			action = entity.EventActionMovementRejected
			card.Status = entity.CardStatusRejected
		} else {
			card.CurrentDepartmentID = mv.ToDepartmentID
			card.Status = entity.CardStatusInProcess
			card.CurrentStepID = nil

			if mv.StepID != nil {
				var step entity.ProductionStep
				if err := tx.Where("id = ?", *mv.StepID).First(&step).Error; err != nil {
					return err
				}
				if step.ActualStart == nil {
					step.ActualStart = &mv.StartTime
				}
				step.ActualEnd = &now
				step.Status = entity.StepStatusCompleted
				if err := tx.Save(&step).Error; err != nil {
					return err
				}
				if err := s.eventRepo.AppendTx(tx, &entity.TrackingEvent{
					EntityType: "step",
					EntityID:   step.ID,
					Action:     entity.EventActionStepCompleted,
					ToStatus:   entity.StepStatusCompleted,
					OperatorID: operatorID,
				}); err != nil {
					return err
				}

				// 最后一道工序是显式查询出来的事实，不按位置推断
				remaining, err := s.planRepo.CountRemainingStepsTx(tx, step.PlanID, step.ID)
				if err != nil {
					return err
				}
				if remaining == 0 {
					card.Status = entity.CardStatusCompleted
					if err := tx.Model(&entity.ProductionPlan{}).
						Where("id = ?", step.PlanID).
						Updates(map[string]interface{}{
							"status":     entity.PlanStatusCompleted,
							"updated_at": now,
						}).Error; err != nil {
						return err
					}
				}
			}
		}

		card.UpdatedAt = now
		if err := tx.Save(&card).Error; err != nil {
			return err
		}

		return s.eventRepo.AppendTx(tx, &entity.TrackingEvent{
			EntityType: "movement",
			EntityID:   mv.ID,
			EntityCode: card.CardNo,
			Action:     action,
			FromStatus: entity.MovementStatusStarted,
			ToStatus:   req.Outcome,
			Metadata: entity.JSONB{
				"card_id":       card.ID,
				"to_department": mv.ToDepartmentID,
				"card_status":   card.Status,
			},
			OperatorID: operatorID,
		})
	})
	if err != nil {
		return nil, err
	}

	action := entity.EventActionMovementCompleted
	if req.Outcome == entity.MovementOutcomeRejected {
		action = entity.EventActionMovementRejected
	}
	s.publish(action, mv.CardID, mv.ID, mv.ToDepartmentID)
	s.logger.Info("movement closed",
		zap.String("movement_id", mv.ID),
		zap.String("card_no", cardNo),
		zap.String("outcome", req.Outcome),
	)
	return &mv, nil
}

// GetMovement 流转记录详情
func (s *MovementService) GetMovement(ctx context.Context, id string) (*entity.CardMovement, error) {
	return s.mvRepo.FindByID(ctx, id)
}

// ListByCard 某卡全部流转记录（审计视图）
func (s *MovementService) ListByCard(ctx context.Context, cardID string) ([]entity.CardMovement, error) {
	if _, err := s.cardRepo.FindByID(ctx, cardID); err != nil {
		return nil, err
	}
	return s.mvRepo.FindByCard(ctx, cardID)
}

// publish 事务提交后向看板推送（失败只丢弃，不影响业务结果）
func (s *MovementService) publish(action, cardID, movementID, toDept string) {
	if s.hub == nil {
		return
	}
	s.hub.PublishTracking(sse.TrackingUpdate{
		Action:       action,
		CardID:       cardID,
		MovementID:   movementID,
		ToDepartment: toDept,
	})
}
