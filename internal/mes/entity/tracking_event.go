package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// 跟踪事件动作
const (
	EventActionStepsApplied      = "steps_applied"
	EventActionCardIssued        = "card_issued"
	EventActionCardPrinted       = "card_printed"
	EventActionMovementStarted   = "movement_started"
	EventActionMovementCompleted = "movement_completed"
	EventActionMovementRejected  = "movement_rejected"
	EventActionStepStarted       = "step_started"
	EventActionStepCompleted     = "step_completed"
	EventActionPlanCancelled     = "plan_cancelled"
)

// TrackingEvent 跟踪事件（只追加，供看板/分析消费）
type TrackingEvent struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_tracking_entity"` // plan/step/card/movement
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_tracking_entity"`
	EntityCode string `json:"entity_code" gorm:"size:64"`

	Action     string `json:"action" gorm:"size:50;not null"`
	FromStatus string `json:"from_status" gorm:"size:20"`
	ToStatus   string `json:"to_status" gorm:"size:20"`

	Content  string `json:"content" gorm:"type:text"`
	Metadata JSONB  `json:"metadata" gorm:"type:jsonb"`

	OperatorID string    `json:"operator_id" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (TrackingEvent) TableName() string {
	return "mes_tracking_events"
}
