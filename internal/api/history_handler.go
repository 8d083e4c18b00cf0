package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-game/internal/repository"
	"go.uber.org/zap"
)

// HistoryHandler 对局历史处理器
type HistoryHandler struct {
	historyRepo repository.HistoryRepository
	logger      *zap.Logger
}

// NewHistoryHandler 创建对局历史处理器
func NewHistoryHandler(historyRepo repository.HistoryRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

func pagination(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repository.NewPagination(page, pageSize)
}

// ListHistories 分页获取对局历史
func (h *HistoryHandler) ListHistories(c *gin.Context) {
	p := pagination(c)

	histories, err := h.historyRepo.GetAll(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("查询对局历史失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: "查询对局历史失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"histories": histories,
		"total":     p.Total,
		"page":      p.Page,
		"page_size": p.PageSize,
	})
}

// GetHistory 根据会话ID获取单局历史
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("session_id")

	history, err := h.historyRepo.FindBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "对局不存在",
		})
		return
	}

	c.JSON(http.StatusOK, history)
}

// ListTerminations 分页获取房间中止记录
func (h *HistoryHandler) ListTerminations(c *gin.Context) {
	p := pagination(c)

	terminations, err := h.historyRepo.GetTerminations(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("查询中止记录失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: "查询中止记录失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"terminations": terminations,
		"total":        p.Total,
		"page":         p.Page,
		"page_size":    p.PageSize,
	})
}

// Summary 对局统计汇总
func (h *HistoryHandler) Summary(c *gin.Context) {
	summary, err := h.historyRepo.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("统计对局汇总失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: "统计失败",
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
