package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-game/internal/config"
	apperrors "github.com/wfunc/liar-game/internal/errors"
	"github.com/wfunc/liar-game/internal/game"
	"github.com/wfunc/liar-game/internal/middleware"
	ws "github.com/wfunc/liar-game/internal/websocket"
	"go.uber.org/zap"
)

// GameHandler 玩家动作的REST入口
//
// 与WebSocket通道语义一致：同一套会话操作，事件仍经Hub推送，
// 这里只返回操作结果和请求者视角的快照。
type GameHandler struct {
	registry *game.Registry
	logger   *zap.Logger
}

// NewGameHandler 创建游戏动作处理器
func NewGameHandler(registry *game.Registry, logger *zap.Logger) *GameHandler {
	return &GameHandler{registry: registry, logger: logger}
}

// renderAppError 按错误码映射HTTP状态
func renderAppError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	c.JSON(appErr.HTTPStatus(), ErrorResponse{
		Code:    strconv.Itoa(int(appErr.Code)),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// playerID 从认证上下文取玩家ID
func playerID(c *gin.Context) (int64, bool) {
	id, ok := middleware.GetPlayerID(c)
	if !ok || id == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "请先登录",
		})
		return 0, false
	}
	return id, true
}

// sessionByNumber 按房间号定位会话
func (h *GameHandler) sessionByNumber(c *gin.Context) (*game.Session, bool) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "房间号格式错误",
		})
		return nil, false
	}

	s, err := h.registry.GetByRoomNumber(number)
	if err != nil {
		renderAppError(c, err)
		return nil, false
	}
	return s, true
}

// CreateRoom 创建房间
func (h *GameHandler) CreateRoom(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	nickname, _ := middleware.GetNickname(c)

	var req ws.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "建房参数错误",
			Details: err.Error(),
		})
		return
	}

	cfg := ws.SessionConfigFromRequest(&req)
	owner := &game.Player{ID: pid, Nickname: nickname}
	s, err := h.registry.CreateSession(owner, cfg, req.Password)
	if err != nil {
		renderAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.SnapshotFor(pid))
}

// JoinRoomRequest 入房参数
type JoinRoomRequest struct {
	Password string `json:"password"`
}

// JoinRoom 加入房间
func (h *GameHandler) JoinRoom(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	nickname, _ := middleware.GetNickname(c)

	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "房间号格式错误",
		})
		return
	}

	var req JoinRoomRequest
	// 无密码房间允许空请求体
	_ = c.ShouldBindJSON(&req)

	s, err := h.registry.JoinRoom(number, req.Password, pid, nickname)
	if err != nil {
		renderAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.SnapshotFor(pid))
}

// LeaveRoom 离开房间
func (h *GameHandler) LeaveRoom(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	s, ok := h.sessionByNumber(c)
	if !ok {
		return
	}

	empty, err := s.Leave(pid)
	if err != nil {
		renderAppError(c, err)
		return
	}
	if empty {
		h.registry.RemoveSession(s.ID, "empty")
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "已离开房间"})
}

// Snapshot 请求者视角的会话快照
func (h *GameHandler) Snapshot(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	s, ok := h.sessionByNumber(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.SnapshotFor(pid))
}

// StartGame 开始游戏
func (h *GameHandler) StartGame(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	s, ok := h.sessionByNumber(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := s.StartGame(ctx, pid); err != nil {
		renderAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.SnapshotFor(pid))
}

// ExtendStart 延长开局截止时间
func (h *GameHandler) ExtendStart(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	s, ok := h.sessionByNumber(c)
	if !ok {
		return
	}

	if err := s.ExtendStartDeadline(pid, config.Get().Game.Room.StartExtension); err != nil {
		renderAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "开局时间已延长"})
}

// TextRequest 文本动作参数（发言/辩护/猜词）
type TextRequest struct {
	Text string `json:"text"`
}

// SubmitHint 提交发言
func (h *GameHandler) SubmitHint(c *gin.Context) {
	h.textAction(c, func(s *game.Session, pid int64, text string) error {
		return s.SubmitHint(pid, text)
	})
}

// SubmitDefense 提交辩护
func (h *GameHandler) SubmitDefense(c *gin.Context) {
	h.textAction(c, func(s *game.Session, pid int64, text string) error {
		return s.SubmitDefense(pid, text)
	})
}

// SubmitGuess 骗子猜词
func (h *GameHandler) SubmitGuess(c *gin.Context) {
	h.textAction(c, func(s *game.Session, pid int64, text string) error {
		return s.SubmitGuess(pid, text)
	})
}

// textAction 文本类动作的公共流程
func (h *GameHandler) textAction(c *gin.Context, fn func(*game.Session, int64, string) error) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	s, ok := h.sessionByNumber(c)
	if !ok {
		return
	}

	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
		})
		return
	}

	if err := fn(s, pid, req.Text); err != nil {
		renderAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "已提交"})
}

// VoteRequest 指控投票参数
type VoteRequest struct {
	TargetID int64 `json:"target_id" binding:"required"`
}

// CastVote 指控投票
func (h *GameHandler) CastVote(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	s, ok := h.sessionByNumber(c)
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "投票参数错误",
		})
		return
	}

	if err := s.CastAccusationVote(pid, req.TargetID); err != nil {
		renderAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "已投票"})
}

// SurvivalVoteRequest 终投参数
type SurvivalVoteRequest struct {
	Execute *bool `json:"execute" binding:"required"`
}

// SurvivalVote 终投
func (h *GameHandler) SurvivalVote(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	s, ok := h.sessionByNumber(c)
	if !ok {
		return
	}

	var req SurvivalVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "终投参数错误",
		})
		return
	}

	if err := s.CastSurvivalVote(pid, *req.Execute); err != nil {
		renderAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "已投票"})
}
