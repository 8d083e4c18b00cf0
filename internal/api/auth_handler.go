package api

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-game/internal/utils"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器，提供访客登录和令牌刷新
type AuthHandler struct {
	jwtManager *utils.JWTManager
	logger     *zap.Logger

	// 访客ID序列，进程内单调递增，基数含启动时间戳避免重启后撞号
	nextID int64
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtManager *utils.JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		logger:     logger,
		nextID:     time.Now().UnixMilli() << 10,
	}
}

// GuestLoginRequest 访客登录请求
type GuestLoginRequest struct {
	Nickname string `json:"nickname" binding:"max=32"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	PlayerID     int64  `json:"player_id"`
	Nickname     string `json:"nickname"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // 秒
}

// GuestLogin 访客登录
// 无需注册，给定昵称即发放令牌；昵称为空时自动生成
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	var req GuestLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		generated, err := utils.GenerateGuestNickname()
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Code:    "LOGIN_FAILED",
				Message: "生成昵称失败",
			})
			return
		}
		nickname = generated
	}

	playerID := atomic.AddInt64(&h.nextID, 1)

	accessToken, err := h.jwtManager.GenerateAccessToken(playerID, nickname, true)
	if err != nil {
		h.logger.Error("生成访问令牌失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "LOGIN_FAILED",
			Message: "生成令牌失败",
		})
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(playerID)
	if err != nil {
		h.logger.Error("生成刷新令牌失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "LOGIN_FAILED",
			Message: "生成令牌失败",
		})
		return
	}

	h.logger.Info("访客登录",
		zap.Int64("player_id", playerID),
		zap.String("nickname", nickname),
		zap.String("ip", c.ClientIP()))

	c.JSON(http.StatusOK, AuthResponse{
		PlayerID:     playerID,
		Nickname:     nickname,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(h.jwtManager.GetTokenExpiry("access").Seconds()),
	})
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	Nickname     string `json:"nickname" binding:"required,max=32"`
}

// RefreshToken 刷新访问令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	accessToken, err := h.jwtManager.RefreshAccessToken(req.RefreshToken, req.Nickname, true)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "REFRESH_FAILED",
			Message: "刷新令牌无效或已过期",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"expires_in":   int64(h.jwtManager.GetTokenExpiry("access").Seconds()),
	})
}

// Profile 获取当前玩家信息
func (h *AuthHandler) Profile(c *gin.Context) {
	playerID, _ := c.Get("playerID")
	nickname, _ := c.Get("nickname")

	c.JSON(http.StatusOK, gin.H{
		"player_id": playerID,
		"nickname":  nickname,
		"guest":     true,
	})
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
