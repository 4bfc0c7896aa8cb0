package handler

import (
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// PlanHandler 生产计划处理器
type PlanHandler struct {
	svc        *service.PlanService
	scheduling *service.SchedulingService
}

func NewPlanHandler(svc *service.PlanService, scheduling *service.SchedulingService) *PlanHandler {
	return &PlanHandler{svc: svc, scheduling: scheduling}
}

// ListPlans 计划列表
// GET /api/v1/mes/plans?order_id=xxx&status=xxx&priority=xxx&search=xxx
func (h *PlanHandler) ListPlans(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"order_id": c.Query("order_id"),
		"status":   c.Query("status"),
		"priority": c.Query("priority"),
		"search":   c.Query("search"),
	}

	items, total, err := h.svc.ListPlans(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取计划列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: listTotalPages(total, pageSize),
		},
	})
}

// GetPlan 计划详情
// GET /api/v1/mes/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.svc.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, plan)
}

// CreatePlan 创建计划
// POST /api/v1/mes/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	plan, err := h.svc.CreatePlan(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		InternalError(c, "创建计划失败: "+err.Error())
		return
	}
	Created(c, plan)
}

// ApplyTemplateRequest 套用模板请求
type ApplyTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	AnchorDate string `json:"anchor_date" binding:"required"` // yyyy-mm-dd
}

// ApplyTemplate 套用工艺路线模板，整体重建计划工序
// POST /api/v1/mes/plans/:id/apply-template
func (h *PlanHandler) ApplyTemplate(c *gin.Context) {
	var req ApplyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	anchor, err := time.Parse("2006-01-02", req.AnchorDate)
	if err != nil {
		BadRequest(c, "锚点日期格式错误，应为yyyy-mm-dd")
		return
	}

	steps, err := h.scheduling.ApplyTemplate(c.Request.Context(), c.Param("id"), req.TemplateID, anchor, GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, steps)
}

// GetSteps 计划工序集
// GET /api/v1/mes/plans/:id/steps
func (h *PlanHandler) GetSteps(c *gin.Context) {
	steps, err := h.svc.GetSteps(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, steps)
}

// CancelPlan 取消计划
// POST /api/v1/mes/plans/:id/cancel
func (h *PlanHandler) CancelPlan(c *gin.Context) {
	plan, err := h.svc.CancelPlan(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, plan)
}

// StartStep 人工开工
// POST /api/v1/mes/steps/:id/start
func (h *PlanHandler) StartStep(c *gin.Context) {
	step, err := h.svc.StartStep(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, step)
}

// CompleteStep 人工完工
// POST /api/v1/mes/steps/:id/complete
func (h *PlanHandler) CompleteStep(c *gin.Context) {
	step, err := h.svc.CompleteStep(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, step)
}
