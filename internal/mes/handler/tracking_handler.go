package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// TrackingHandler 跟踪看板处理器
type TrackingHandler struct {
	svc *service.TrackingService
}

func NewTrackingHandler(svc *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

// GetSummary 跟踪总览
// GET /api/v1/mes/tracking/summary
func (h *TrackingHandler) GetSummary(c *gin.Context) {
	summary, err := h.svc.GetTrackingSummary(c.Request.Context())
	if err != nil {
		InternalError(c, "获取跟踪总览失败: "+err.Error())
		return
	}
	Success(c, summary)
}

// GetDelayedSteps 延误工序列表
// GET /api/v1/mes/tracking/delays
func (h *TrackingHandler) GetDelayedSteps(c *gin.Context) {
	delayed, err := h.svc.GetDelayedSteps(c.Request.Context())
	if err != nil {
		InternalError(c, "延误检测失败: "+err.Error())
		return
	}
	Success(c, delayed)
}

// ListEvents 跟踪事件列表
// GET /api/v1/mes/tracking/events?entity_type=xxx&entity_id=xxx&action=xxx
func (h *TrackingHandler) ListEvents(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"entity_type": c.Query("entity_type"),
		"entity_id":   c.Query("entity_id"),
		"action":      c.Query("action"),
	}

	items, total, err := h.svc.ListEvents(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取事件列表失败: "+err.Error())
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
