package entity

import (
	"time"

	"gorm.io/datatypes"
)

// 流转记录状态
const (
	MovementStatusStarted   = "started"
	MovementStatusCompleted = "completed"
	MovementStatusRejected  = "rejected"
)

// 流转结束结果
const (
	MovementOutcomeCompleted = MovementStatusCompleted
	MovementOutcomeRejected  = MovementStatusRejected
)

// CardMovement 流转卡部门间移动记录。只追加：关闭(end_time置值)后不可再变更。
// 同一张卡同时最多一条未关闭记录(end_time IS NULL)，由部分唯一索引兜底。
type CardMovement struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	CardID string `json:"card_id" gorm:"size:32;not null;index"`

	FromDepartmentID *string `json:"from_department_id" gorm:"size:32"` // 首次流转为空
	ToDepartmentID   string  `json:"to_department_id" gorm:"size:32;not null"`
	StepID           *string `json:"step_id" gorm:"size:32"` // 对应计划工序（可选）

	OperatorID string  `json:"operator_id" gorm:"size:32;not null"`
	MachineID  *string `json:"machine_id" gorm:"size:32"`

	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`
	Status    string     `json:"status" gorm:"size:20;default:started"`

	Notes   string         `json:"notes" gorm:"type:text"`
	Defects datatypes.JSON `json:"defects" gorm:"type:jsonb"` // [{type,description,qty}]

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CardMovement) TableName() string {
	return "mes_card_movements"
}

// MovementDefect 质量缺陷条目
type MovementDefect struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
}
