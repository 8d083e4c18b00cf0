package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-game/internal/models"
	"github.com/wfunc/liar-game/internal/repository"
	"go.uber.org/zap"
)

// SubjectHandler 题库管理处理器
type SubjectHandler struct {
	subjectRepo repository.SubjectRepository
	logger      *zap.Logger
}

// NewSubjectHandler 创建题库管理处理器
func NewSubjectHandler(subjectRepo repository.SubjectRepository, logger *zap.Logger) *SubjectHandler {
	return &SubjectHandler{
		subjectRepo: subjectRepo,
		logger:      logger,
	}
}

// ListSubjects 分页获取主题列表
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	p := pagination(c)

	subjects, err := h.subjectRepo.GetAll(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("查询题库失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: "查询题库失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subjects":  subjects,
		"total":     p.Total,
		"page":      p.Page,
		"page_size": p.PageSize,
	})
}

// CreateSubjectRequest 创建主题请求
type CreateSubjectRequest struct {
	Name  string   `json:"name" binding:"required,max=100"`
	Words []string `json:"words"`
}

// CreateSubject 创建主题（可同时附带词语）
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	var req CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	subject := &models.Subject{Name: req.Name, Status: "active"}
	if err := h.subjectRepo.Create(c.Request.Context(), subject); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "CREATE_FAILED",
			Message: "创建主题失败",
			Details: err.Error(),
		})
		return
	}

	if len(req.Words) > 0 {
		if err := h.subjectRepo.AddWords(c.Request.Context(), subject.ID, req.Words); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Code:    "CREATE_FAILED",
				Message: "添加词语失败",
			})
			return
		}
	}

	created, err := h.subjectRepo.FindByID(c.Request.Context(), subject.ID)
	if err != nil {
		created = subject
	}

	h.logger.Info("创建主题", zap.String("name", req.Name), zap.Int("words", len(req.Words)))
	c.JSON(http.StatusOK, created)
}

// AddWordsRequest 添加词语请求
type AddWordsRequest struct {
	Words []string `json:"words" binding:"required,min=1"`
}

// AddWords 向主题追加词语
func (h *SubjectHandler) AddWords(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "主题ID格式错误",
		})
		return
	}

	var req AddWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if _, err := h.subjectRepo.FindByID(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "主题不存在",
		})
		return
	}

	if err := h.subjectRepo.AddWords(c.Request.Context(), uint(id), req.Words); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "ADD_WORDS_FAILED",
			Message: "添加词语失败",
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "词语已添加"})
}

// DeleteSubject 删除主题
func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "主题ID格式错误",
		})
		return
	}

	if err := h.subjectRepo.Delete(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DELETE_FAILED",
			Message: "删除主题失败",
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "主题已删除"})
}
