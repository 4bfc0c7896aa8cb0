package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"github.com/gin-gonic/gin"
)

// Handlers MES处理器集合
type Handlers struct {
	Template *TemplateHandler
	Plan     *PlanHandler
	Card     *CardHandler
	Movement *MovementHandler
	Tracking *TrackingHandler
	SSE      *SSEHandler
}

// NewHandlers 创建MES处理器集合
func NewHandlers(services *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Template: NewTemplateHandler(services.Template),
		Plan:     NewPlanHandler(services.Plan, services.Scheduling),
		Card:     NewCardHandler(services.Card, services.Export),
		Movement: NewMovementHandler(services.Movement),
		Tracking: NewTrackingHandler(services.Tracking),
		SSE:      NewSSEHandler(hub),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleServiceError 统一映射核心错误
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "记录不存在")
	case errors.Is(err, service.ErrInvalidTemplate):
		BadRequest(c, "模板没有工序，无法套用")
	case errors.Is(err, service.ErrConflictingMovement):
		Conflict(c, "该卡已有未关闭的流转记录")
	case errors.Is(err, service.ErrAlreadyClosed):
		Conflict(c, "流转记录已关闭")
	case errors.Is(err, service.ErrIssuanceExhausted):
		Error(c, 50900, "条码生成重试耗尽")
	case errors.Is(err, service.ErrBarcodeInUse):
		BadRequest(c, "条码已被占用")
	case errors.Is(err, service.ErrCardNotActive):
		BadRequest(c, "卡已终结，不可流转")
	case errors.Is(err, service.ErrStepNotInPlan):
		BadRequest(c, "工序不属于该卡的计划")
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listTotalPages(total int64, pageSize int) int {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return totalPages
}
