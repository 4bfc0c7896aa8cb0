package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// CardHandler 流转卡处理器
type CardHandler struct {
	svc    *service.CardService
	export *service.ExportService
}

func NewCardHandler(svc *service.CardService, export *service.ExportService) *CardHandler {
	return &CardHandler{svc: svc, export: export}
}

// ListCards 流转卡列表
// GET /api/v1/mes/cards?plan_id=xxx&order_id=xxx&status=xxx&department_id=xxx&search=xxx
func (h *CardHandler) ListCards(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"plan_id":       c.Query("plan_id"),
		"order_id":      c.Query("order_id"),
		"status":        c.Query("status"),
		"department_id": c.Query("department_id"),
		"search":        c.Query("search"),
	}

	items, total, err := h.svc.ListCards(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取流转卡列表失败: "+err.Error())
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

// GetCard 流转卡详情
// GET /api/v1/mes/cards/:id
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.svc.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// LookupByBarcode 扫码查卡
// GET /api/v1/mes/cards/barcode/:barcode
func (h *CardHandler) LookupByBarcode(c *gin.Context) {
	card, err := h.svc.LookupByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// IssueCard 签发流转卡
// POST /api/v1/mes/cards
func (h *CardHandler) IssueCard(c *gin.Context) {
	var req service.IssueCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	card, err := h.svc.IssueCard(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, card)
}

// RecordPrint 打印计数
// POST /api/v1/mes/cards/:id/print
func (h *CardHandler) RecordPrint(c *gin.Context) {
	card, err := h.svc.RecordPrint(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// ExportMovements 导出流转履历Excel
// GET /api/v1/mes/cards/:id/movements/export
func (h *CardHandler) ExportMovements(c *gin.Context) {
	f, filename, err := h.export.ExportCardMovements(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
