package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// MovementHandler 流转记录处理器
type MovementHandler struct {
	svc *service.MovementService
}

func NewMovementHandler(svc *service.MovementService) *MovementHandler {
	return &MovementHandler{svc: svc}
}

// StartMovement 开始一跳流转
// POST /api/v1/mes/cards/:id/movements
func (h *MovementHandler) StartMovement(c *gin.Context) {
	var req service.StartMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	mv, err := h.svc.StartMovement(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, mv)
}

// CompleteMovement 关闭一跳流转
// POST /api/v1/mes/movements/:id/complete
func (h *MovementHandler) CompleteMovement(c *gin.Context) {
	var req service.CompleteMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	mv, err := h.svc.CompleteMovement(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, mv)
}

// GetMovement 流转记录详情
// GET /api/v1/mes/movements/:id
func (h *MovementHandler) GetMovement(c *gin.Context) {
	mv, err := h.svc.GetMovement(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, mv)
}

// ListCardMovements 某卡全部流转记录
// GET /api/v1/mes/cards/:id/movements
func (h *MovementHandler) ListCardMovements(c *gin.Context) {
	movements, err := h.svc.ListByCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, movements)
}
