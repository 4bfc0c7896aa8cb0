package service

import (
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 核心错误类型：所有校验在任何写入之前完成，事务保证无半套用状态
var (
	ErrInvalidTemplate     = errors.New("route template has no steps")
	ErrConflictingMovement = errors.New("card already has an open movement")
	ErrAlreadyClosed       = errors.New("movement is already closed")
	ErrIssuanceExhausted   = errors.New("card issuance retries exhausted")
	ErrBarcodeInUse        = errors.New("barcode is already in use")
	ErrCardNotActive       = errors.New("card is completed or rejected")
	ErrStepNotInPlan       = errors.New("step does not belong to the card's plan")
)

// Services MES服务集合
type Services struct {
	Template   *TemplateService
	Plan       *PlanService
	Scheduling *SchedulingService
	Card       *CardService
	Movement   *MovementService
	Tracking   *TrackingService
	Export     *ExportService
}

// NewServices 创建MES服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, hub *sse.Hub, logger *zap.Logger) *Services {
	return &Services{
		Template:   NewTemplateService(repos.Template),
		Plan:       NewPlanService(repos.Plan, repos.TrackingEvent, db),
		Scheduling: NewSchedulingService(repos.Template, repos.Plan, repos.TrackingEvent, db),
		Card:       NewCardService(repos.Card, repos.Plan, repos.TrackingEvent, logger),
		Movement:   NewMovementService(repos.Card, repos.Plan, repos.Movement, repos.TrackingEvent, db, hub, logger),
		Tracking:   NewTrackingService(db, rdb, repos.Movement, repos.TrackingEvent),
		Export:     NewExportService(repos.Card, repos.Movement),
	}
}
