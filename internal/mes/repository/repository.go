package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories MES仓库集合
type Repositories struct {
	Template      *RouteTemplateRepository
	Plan          *PlanRepository
	Card          *CardRepository
	Movement      *MovementRepository
	TrackingEvent *TrackingEventRepository
}

// NewRepositories 创建MES仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Template:      NewRouteTemplateRepository(db),
		Plan:          NewPlanRepository(db),
		Card:          NewCardRepository(db),
		Movement:      NewMovementRepository(db),
		TrackingEvent: NewTrackingEventRepository(db),
	}
}
