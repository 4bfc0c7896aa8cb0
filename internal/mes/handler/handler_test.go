package handler

import (
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
	"go.uber.org/zap"
)

func setupHandlerTest(t *testing.T) (*testutil.TestEnv, *Handlers) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	hub := sse.NewHub()
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil, hub, zap.NewNop())
	handlers := NewHandlers(services, hub)

	mes := testutil.AuthGroup(router, "/api/v1/mes")
	{
		templates := mes.Group("/route-templates")
		templates.GET("", handlers.Template.ListTemplates)
		templates.POST("", handlers.Template.CreateTemplate)
		templates.GET("/:id", handlers.Template.GetTemplate)
		templates.PUT("/:id", handlers.Template.UpdateTemplate)
		templates.PUT("/:id/steps", handlers.Template.ReplaceSteps)
		templates.DELETE("/:id", handlers.Template.DeleteTemplate)

		plans := mes.Group("/plans")
		plans.GET("", handlers.Plan.ListPlans)
		plans.POST("", handlers.Plan.CreatePlan)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.POST("/:id/apply-template", handlers.Plan.ApplyTemplate)
		plans.GET("/:id/steps", handlers.Plan.GetSteps)
		plans.POST("/:id/cancel", handlers.Plan.CancelPlan)

		steps := mes.Group("/steps")
		steps.POST("/:id/start", handlers.Plan.StartStep)
		steps.POST("/:id/complete", handlers.Plan.CompleteStep)

		cards := mes.Group("/cards")
		cards.GET("", handlers.Card.ListCards)
		cards.POST("", handlers.Card.IssueCard)
		cards.GET("/barcode/:barcode", handlers.Card.LookupByBarcode)
		cards.GET("/:id", handlers.Card.GetCard)
		cards.POST("/:id/print", handlers.Card.RecordPrint)
		cards.GET("/:id/movements", handlers.Movement.ListCardMovements)
		cards.POST("/:id/movements", handlers.Movement.StartMovement)

		movements := mes.Group("/movements")
		movements.GET("/:id", handlers.Movement.GetMovement)
		movements.POST("/:id/complete", handlers.Movement.CompleteMovement)

		tracking := mes.Group("/tracking")
		tracking.GET("/summary", handlers.Tracking.GetSummary)
		tracking.GET("/delays", handlers.Tracking.GetDelayedSteps)
		tracking.GET("/events", handlers.Tracking.ListEvents)
	}

	return &testutil.TestEnv{DB: db, Router: router, T: t}, handlers
}
