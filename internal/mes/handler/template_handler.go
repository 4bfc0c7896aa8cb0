package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 工艺路线模板处理器
type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// ListTemplates 模板列表
// GET /api/v1/mes/route-templates?status=xxx&search=xxx
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"search": c.Query("search"),
	}

	items, total, err := h.svc.ListTemplates(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取模板列表失败: "+err.Error())
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

// GetTemplate 模板详情
// GET /api/v1/mes/route-templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, tpl)
}

// CreateTemplate 创建模板
// POST /api/v1/mes/route-templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.CreateTemplate(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		InternalError(c, "创建模板失败: "+err.Error())
		return
	}
	Created(c, tpl)
}

// UpdateTemplate 更新模板头
// PUT /api/v1/mes/route-templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.UpdateTemplate(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, tpl)
}

// ReplaceSteps 整体替换模板工序
// PUT /api/v1/mes/route-templates/:id/steps
func (h *TemplateHandler) ReplaceSteps(c *gin.Context) {
	var req struct {
		Steps []service.CreateTemplateStep `json:"steps" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tpl, err := h.svc.ReplaceTemplateSteps(c.Request.Context(), c.Param("id"), req.Steps)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, tpl)
}

// DeleteTemplate 删除模板
// DELETE /api/v1/mes/route-templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.svc.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}
