package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// 流转卡状态
const (
	CardStatusCreated   = "created"
	CardStatusInProcess = "in_process"
	CardStatusCompleted = "completed"
	CardStatusRejected  = "rejected"
)

// ProductionCard 生产流转卡（一个实物批次在各部门间流转的跟踪标识）
type ProductionCard struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	CardNo  string `json:"card_no" gorm:"size:32;uniqueIndex;not null"`
	Barcode string `json:"barcode" gorm:"size:64;uniqueIndex;not null"` // 签发后不可变
	OrderID string `json:"order_id" gorm:"size:32;not null;index"`
	PlanID  string `json:"plan_id" gorm:"size:32;not null;index"`

	// 物理属性（布卷/纱批）
	FabricTypeID *string          `json:"fabric_type_id" gorm:"size:32"`
	Width        *decimal.Decimal `json:"width" gorm:"type:decimal(10,2)"`  // cm
	Length       *decimal.Decimal `json:"length" gorm:"type:decimal(12,2)"` // m
	Weight       *decimal.Decimal `json:"weight" gorm:"type:decimal(12,3)"` // kg
	Color        string           `json:"color" gorm:"size:50"`

	// 当前位置始终等于最近一次完成流转的目的部门（无流转时为签发部门）
	CurrentDepartmentID string  `json:"current_department_id" gorm:"size:32;not null"`
	CurrentStepID       *string `json:"current_step_id" gorm:"size:32"`

	Status       string `json:"status" gorm:"size:20;default:created"`
	QualityGrade string `json:"quality_grade" gorm:"size:10"`

	PrintCount  int        `json:"print_count" gorm:"default:0"`
	LastPrintAt *time.Time `json:"last_print_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionCard) TableName() string {
	return "mes_production_cards"
}
