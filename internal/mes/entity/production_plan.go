package entity

import "time"

// 生产计划状态
const (
	PlanStatusPending    = "pending"
	PlanStatusInProgress = "in_progress"
	PlanStatusCompleted  = "completed"
	PlanStatusCancelled  = "cancelled"
)

// 生产计划优先级
const (
	PlanPriorityNormal = "normal"
	PlanPriorityHigh   = "high"
)

// ProductionPlan 生产计划（一个订单的生产排程记录）
type ProductionPlan struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	PlanNo      string `json:"plan_no" gorm:"size:32;uniqueIndex;not null"`
	OrderID     string `json:"order_id" gorm:"size:32;not null;index"`
	Description string `json:"description" gorm:"type:text"`
	Status      string `json:"status" gorm:"size:20;default:pending"`
	Priority    string `json:"priority" gorm:"size:20;default:normal"`

	// 整体计划窗口（套用模板后由首末工序回填）
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Steps []ProductionStep `json:"steps,omitempty" gorm:"foreignKey:PlanID"`
}

func (ProductionPlan) TableName() string {
	return "mes_production_plans"
}

// 生产工序状态
const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
	StepStatusCancelled  = "cancelled"
)

// ProductionStep 计划工序（模板套用后的具体时间窗）
type ProductionStep struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	PlanID        string  `json:"plan_id" gorm:"size:32;not null;uniqueIndex:uniq_plan_step_order,priority:1"`
	StepOrder     int     `json:"step_order" gorm:"not null;uniqueIndex:uniq_plan_step_order,priority:2"`
	ProcessTypeID string  `json:"process_type_id" gorm:"size:32;not null"`
	DepartmentID  string  `json:"department_id" gorm:"size:32;not null"`
	MachineID     *string `json:"machine_id" gorm:"size:32"`

	PlannedStart time.Time  `json:"planned_start" gorm:"not null"`
	PlannedEnd   time.Time  `json:"planned_end" gorm:"not null"`
	ActualStart  *time.Time `json:"actual_start"`
	ActualEnd    *time.Time `json:"actual_end"`

	Status string `json:"status" gorm:"size:20;default:pending"`
	Notes  string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionStep) TableName() string {
	return "mes_production_steps"
}
