package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-game/internal/game"
)

// RoomHandler 房间查询处理器
type RoomHandler struct {
	registry *game.Registry
}

// NewRoomHandler 创建房间查询处理器
func NewRoomHandler(registry *game.Registry) *RoomHandler {
	return &RoomHandler{registry: registry}
}

// ListRooms 获取房间列表
func (h *RoomHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms": h.registry.ListRooms(),
	})
}

// GetRoom 获取单个房间的公开状态
func (h *RoomHandler) GetRoom(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "房间号格式错误",
		})
		return
	}

	s, err := h.registry.GetByRoomNumber(number)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "ROOM_NOT_FOUND",
			Message: "房间不存在",
		})
		return
	}

	// 未入房的观察视角，不含身份和词语
	c.JSON(http.StatusOK, s.SnapshotFor(0))
}

// Stats 在线统计
func (h *RoomHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active_rooms": h.registry.ActiveSessions(),
	})
}
