package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSchedulingTest(t *testing.T) (*gorm.DB, *Services) {
	t.Helper()
	db := setupServiceDB(t)
	repos := repository.NewRepositories(db)
	services := NewServices(repos, db, nil, sse.NewHub(), zap.NewNop())
	return db, services
}

func seedTemplate(t *testing.T, db *gorm.DB, id string, steps []entity.RouteTemplateStep) *entity.RouteTemplate {
	t.Helper()
	tpl := &entity.RouteTemplate{
		ID:        id,
		Code:      "RT-TEST-" + id,
		Name:      "Template " + id,
		Status:    entity.TemplateStatusActive,
		CreatedBy: "test-user-001",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(tpl).Error; err != nil {
		t.Fatalf("Failed to seed template: %v", err)
	}
	for i := range steps {
		steps[i].TemplateID = id
	}
	if len(steps) > 0 {
		if err := db.Create(&steps).Error; err != nil {
			t.Fatalf("Failed to seed template steps: %v", err)
		}
	}
	return tpl
}

func TestApplyTemplateExpandsSteps(t *testing.T) {
	db, services := setupSchedulingTest(t)
	seedPlan(t, db, "plan-sched-001")
	seedTemplate(t, db, "tpl-sched-001", []entity.RouteTemplateStep{
		{ID: "ts-001", Sequence: 1, ProcessTypeID: "pt-weaving", DepartmentID: "dept-weaving", EstimatedHours: 24, DayOffset: 0, CreatedAt: time.Now()},
		{ID: "ts-002", Sequence: 2, ProcessTypeID: "pt-finishing", DepartmentID: "dept-finishing", EstimatedHours: 48, DayOffset: 1, CreatedAt: time.Now()},
	})

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	steps, err := services.Scheduling.ApplyTemplate(context.Background(), "plan-sched-001", "tpl-sched-001", anchor, "test-user-001")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(steps))
	}

	// 第一道工序：锚点当天开工，24小时后结束
	if !steps[0].PlannedStart.Equal(anchor) {
		t.Errorf("Step 1 planned start: expected %v, got %v", anchor, steps[0].PlannedStart)
	}
	wantEnd1 := anchor.Add(24 * time.Hour)
	if !steps[0].PlannedEnd.Equal(wantEnd1) {
		t.Errorf("Step 1 planned end: expected %v, got %v", wantEnd1, steps[0].PlannedEnd)
	}

	// 第二道工序：偏移1天，48小时工时
	wantStart2 := anchor.AddDate(0, 0, 1)
	if !steps[1].PlannedStart.Equal(wantStart2) {
		t.Errorf("Step 2 planned start: expected %v, got %v", wantStart2, steps[1].PlannedStart)
	}
	wantEnd2 := wantStart2.Add(48 * time.Hour)
	if !steps[1].PlannedEnd.Equal(wantEnd2) {
		t.Errorf("Step 2 planned end: expected %v, got %v", wantEnd2, steps[1].PlannedEnd)
	}

	// 计划窗口由首末工序回填
	var plan entity.ProductionPlan
	if err := db.First(&plan, "id = ?", "plan-sched-001").Error; err != nil {
		t.Fatalf("Failed to reload plan: %v", err)
	}
	if plan.PlannedStart == nil || !plan.PlannedStart.Equal(anchor) {
		t.Errorf("Plan window start not backfilled: %v", plan.PlannedStart)
	}
	if plan.PlannedEnd == nil || !plan.PlannedEnd.Equal(wantEnd2) {
		t.Errorf("Plan window end not backfilled: %v", plan.PlannedEnd)
	}
}

func TestApplyTemplateZeroHoursDefaultsToOneDay(t *testing.T) {
	db, services := setupSchedulingTest(t)
	seedPlan(t, db, "plan-sched-002")
	seedTemplate(t, db, "tpl-sched-002", []entity.RouteTemplateStep{
		{ID: "ts-010", Sequence: 1, ProcessTypeID: "pt-dyeing", DepartmentID: "dept-dyeing", EstimatedHours: 0, CreatedAt: time.Now()},
	})

	anchor := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	steps, err := services.Scheduling.ApplyTemplate(context.Background(), "plan-sched-002", "tpl-sched-002", anchor, "test-user-001")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	if got := steps[0].PlannedEnd.Sub(steps[0].PlannedStart); got != 24*time.Hour {
		t.Errorf("Expected 24h duration for zero estimated hours, got %v", got)
	}
}

func TestApplyTemplateRejectsEmptyTemplate(t *testing.T) {
	db, services := setupSchedulingTest(t)
	seedPlan(t, db, "plan-sched-003")
	seedTemplate(t, db, "tpl-sched-003", nil)
	seedTemplate(t, db, "tpl-sched-004", []entity.RouteTemplateStep{
		{ID: "ts-020", Sequence: 1, ProcessTypeID: "pt-weaving", DepartmentID: "dept-weaving", EstimatedHours: 24, CreatedAt: time.Now()},
	})

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := services.Scheduling.ApplyTemplate(context.Background(), "plan-sched-003", "tpl-sched-004", anchor, "test-user-001"); err != nil {
		t.Fatalf("Seeding initial steps failed: %v", err)
	}

	// 空模板拒绝套用，已有工序原样保留
	_, err := services.Scheduling.ApplyTemplate(context.Background(), "plan-sched-003", "tpl-sched-003", anchor, "test-user-001")
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("Expected ErrInvalidTemplate, got %v", err)
	}

	var count int64
	db.Model(&entity.ProductionStep{}).Where("plan_id = ?", "plan-sched-003").Count(&count)
	if count != 1 {
		t.Errorf("Existing steps should be untouched after rejected apply, got %d", count)
	}
}

func TestApplyTemplateReplacesExistingSteps(t *testing.T) {
	db, services := setupSchedulingTest(t)
	seedPlan(t, db, "plan-sched-005")
	seedTemplate(t, db, "tpl-sched-005", []entity.RouteTemplateStep{
		{ID: "ts-030", Sequence: 1, ProcessTypeID: "pt-weaving", DepartmentID: "dept-weaving", EstimatedHours: 24, CreatedAt: time.Now()},
		{ID: "ts-031", Sequence: 2, ProcessTypeID: "pt-dyeing", DepartmentID: "dept-dyeing", EstimatedHours: 24, DayOffset: 1, CreatedAt: time.Now()},
		{ID: "ts-032", Sequence: 3, ProcessTypeID: "pt-finishing", DepartmentID: "dept-finishing", EstimatedHours: 24, DayOffset: 2, CreatedAt: time.Now()},
	})
	seedTemplate(t, db, "tpl-sched-006", []entity.RouteTemplateStep{
		{ID: "ts-040", Sequence: 1, ProcessTypeID: "pt-inspect", DepartmentID: "dept-qc", EstimatedHours: 8, CreatedAt: time.Now()},
	})

	ctx := context.Background()
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := services.Scheduling.ApplyTemplate(ctx, "plan-sched-005", "tpl-sched-005", anchor, "test-user-001"); err != nil {
		t.Fatalf("First apply failed: %v", err)
	}

	// 重新套用：旧工序全部丢弃，按新模板整体重建
	steps, err := services.Scheduling.ApplyTemplate(ctx, "plan-sched-005", "tpl-sched-006", anchor, "test-user-001")
	if err != nil {
		t.Fatalf("Re-apply failed: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("Expected 1 step after re-apply, got %d", len(steps))
	}

	var count int64
	db.Model(&entity.ProductionStep{}).Where("plan_id = ?", "plan-sched-005").Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 persisted step after re-apply, got %d", count)
	}
}

func TestApplyTemplatePlanNotFound(t *testing.T) {
	db, services := setupSchedulingTest(t)
	seedTemplate(t, db, "tpl-sched-007", []entity.RouteTemplateStep{
		{ID: "ts-050", Sequence: 1, ProcessTypeID: "pt-weaving", DepartmentID: "dept-weaving", EstimatedHours: 24, CreatedAt: time.Now()},
	})

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := services.Scheduling.ApplyTemplate(context.Background(), "nonexistent", "tpl-sched-007", anchor, "test-user-001")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestApplyTemplateWritesTrackingEvent(t *testing.T) {
	db, services := setupSchedulingTest(t)
	seedPlan(t, db, "plan-sched-008")
	seedTemplate(t, db, "tpl-sched-008", []entity.RouteTemplateStep{
		{ID: "ts-060", Sequence: 1, ProcessTypeID: "pt-weaving", DepartmentID: "dept-weaving", EstimatedHours: 24, CreatedAt: time.Now()},
	})

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := services.Scheduling.ApplyTemplate(context.Background(), "plan-sched-008", "tpl-sched-008", anchor, "test-user-001"); err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}

	var events []entity.TrackingEvent
	db.Where("entity_type = ? AND entity_id = ?", "plan", "plan-sched-008").Find(&events)
	if len(events) != 1 {
		t.Fatalf("Expected 1 tracking event, got %d", len(events))
	}
	if events[0].Action != entity.EventActionStepsApplied {
		t.Errorf("Expected action %s, got %s", entity.EventActionStepsApplied, events[0].Action)
	}
}
