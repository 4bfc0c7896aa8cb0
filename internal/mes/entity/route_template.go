package entity

import "time"

// 工艺路线模板状态
const (
	TemplateStatusDraft    = "draft"
	TemplateStatusActive   = "active"
	TemplateStatusArchived = "archived"
)

// RouteTemplate 工艺路线模板（可复用的工序顺序定义）
type RouteTemplate struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Code        string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string `json:"name" gorm:"size:128;not null"`
	Description string `json:"description" gorm:"type:text"`
	Status      string `json:"status" gorm:"size:20;default:active"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Steps []RouteTemplateStep `json:"steps,omitempty" gorm:"foreignKey:TemplateID"`
}

func (RouteTemplate) TableName() string {
	return "mes_route_templates"
}

// RouteTemplateStep 模板工序（sequence 在模板内唯一且总序）
type RouteTemplateStep struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	TemplateID    string  `json:"template_id" gorm:"size:32;not null;uniqueIndex:uniq_template_sequence,priority:1"`
	Sequence      int     `json:"sequence" gorm:"not null;uniqueIndex:uniq_template_sequence,priority:2"`
	ProcessTypeID string  `json:"process_type_id" gorm:"size:32;not null"`
	DepartmentID  string  `json:"department_id" gorm:"size:32;not null"`
	MachineID     *string `json:"machine_id" gorm:"size:32"`

	// EstimatedHours 为0时按1天(24h)排程
	EstimatedHours int    `json:"estimated_hours" gorm:"default:0"`
	DayOffset      int    `json:"day_offset" gorm:"default:0"` // 相对排程锚点的天偏移
	Notes          string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RouteTemplateStep) TableName() string {
	return "mes_route_template_steps"
}
