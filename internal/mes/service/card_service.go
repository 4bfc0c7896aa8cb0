package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 条码冲突时的重试上限
const maxIssueAttempts = 5

// CardService 流转卡服务
type CardService struct {
	cardRepo  *repository.CardRepository
	planRepo  *repository.PlanRepository
	eventRepo *repository.TrackingEventRepository
	logger    *zap.Logger
}

func NewCardService(cardRepo *repository.CardRepository, planRepo *repository.PlanRepository, eventRepo *repository.TrackingEventRepository, logger *zap.Logger) *CardService {
	return &CardService{cardRepo: cardRepo, planRepo: planRepo, eventRepo: eventRepo, logger: logger}
}

// IssueCardRequest 签发流转卡请求
type IssueCardRequest struct {
	PlanID              string           `json:"plan_id" binding:"required"`
	OrderID             string           `json:"order_id" binding:"required"`
	InitialDepartmentID string           `json:"initial_department_id" binding:"required"`
	Barcode             string           `json:"barcode"` // 缺省等于卡号
	FabricTypeID        *string          `json:"fabric_type_id"`
	Width               *decimal.Decimal `json:"width"`
	Length              *decimal.Decimal `json:"length"`
	Weight              *decimal.Decimal `json:"weight"`
	Color               string           `json:"color"`
}

// IssueCard 签发流转卡。生成的条码唯一冲突时换随机后缀重试，
// 超过上限返回 ErrIssuanceExhausted；调用方指定的条码冲突直接报错，
// 其余写入错误原样上抛，绝不吞掉。
func (s *CardService) IssueCard(ctx context.Context, userID string, req *IssueCardRequest) (*entity.ProductionCard, error) {
	plan, err := s.planRepo.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	if req.Barcode != "" {
		taken, err := s.cardRepo.ExistsBarcode(ctx, req.Barcode)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrBarcodeInUse
		}
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		cardNo, err := generateCardNo()
		if err != nil {
			return nil, fmt.Errorf("生成卡号失败: %w", err)
		}
		barcode := req.Barcode
		if barcode == "" {
			barcode = cardNo
		}

		taken, err := s.cardRepo.ExistsBarcode(ctx, barcode)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		card := &entity.ProductionCard{
			ID:                  uuid.New().String()[:32],
			CardNo:              cardNo,
			Barcode:             barcode,
			OrderID:             req.OrderID,
			PlanID:              plan.ID,
			FabricTypeID:        req.FabricTypeID,
			Width:               req.Width,
			Length:              req.Length,
			Weight:              req.Weight,
			Color:               req.Color,
			CurrentDepartmentID: req.InitialDepartmentID,
			Status:              entity.CardStatusCreated,
			CreatedBy:           userID,
		}
		if err := s.cardRepo.Create(ctx, card); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, err
			}
			// 调用方指定的条码在校验后被抢占：换后缀也无济于事
			if req.Barcode != "" {
				return nil, ErrBarcodeInUse
			}
			// 生成条码的唯一约束竞争：换后缀再试
			continue
		}

		if err := s.eventRepo.Create(ctx, &entity.TrackingEvent{
			EntityType: "card",
			EntityID:   card.ID,
			EntityCode: card.CardNo,
			Action:     entity.EventActionCardIssued,
			ToStatus:   entity.CardStatusCreated,
			Metadata: entity.JSONB{
				"plan_id":       plan.ID,
				"department_id": req.InitialDepartmentID,
			},
			OperatorID: userID,
		}); err != nil {
			s.logger.Warn("append card_issued event failed",
				zap.String("card_id", card.ID),
				zap.Error(err),
			)
		}
		return card, nil
	}

	return nil, ErrIssuanceExhausted
}

// ListCards 流转卡列表
func (s *CardService) ListCards(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionCard, int64, error) {
	return s.cardRepo.FindAll(ctx, page, pageSize, filters)
}

// GetCard 流转卡详情
func (s *CardService) GetCard(ctx context.Context, id string) (*entity.ProductionCard, error) {
	return s.cardRepo.FindByID(ctx, id)
}

// LookupByBarcode 扫码查卡（车间终端主入口）
func (s *CardService) LookupByBarcode(ctx context.Context, barcode string) (*entity.ProductionCard, error) {
	return s.cardRepo.FindByBarcode(ctx, barcode)
}

// RecordPrint 打印计数+1并记录打印时间，无业务校验
func (s *CardService) RecordPrint(ctx context.Context, id, operatorID string) (*entity.ProductionCard, error) {
	card, err := s.cardRepo.IncrementPrintCount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.Create(ctx, &entity.TrackingEvent{
		EntityType: "card",
		EntityID:   card.ID,
		EntityCode: card.CardNo,
		Action:     entity.EventActionCardPrinted,
		Metadata:   entity.JSONB{"print_count": card.PrintCount},
		OperatorID: operatorID,
	}); err != nil {
		s.logger.Warn("append card_printed event failed",
			zap.String("card_id", card.ID),
			zap.Error(err),
		)
	}
	return card, nil
}

// generateCardNo 卡号：MC-{yyyymmdd}-{8位随机hex}
func generateCardNo() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "MC-" + time.Now().Format("20060102") + "-" + hex.EncodeToString(buf), nil
}
