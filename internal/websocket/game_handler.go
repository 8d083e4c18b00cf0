package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/liar-game/internal/config"
	"github.com/wfunc/liar-game/internal/errors"
	"github.com/wfunc/liar-game/internal/game"
	"go.uber.org/zap"
)

// GameMessageHandler WebSocket游戏消息处理器
type GameMessageHandler struct {
	hub      *Hub
	registry *game.Registry
	logger   *zap.Logger
}

// NewGameMessageHandler 创建游戏消息处理器
func NewGameMessageHandler(hub *Hub, registry *game.Registry, logger *zap.Logger) *GameMessageHandler {
	h := &GameMessageHandler{
		hub:      hub,
		registry: registry,
		logger:   logger,
	}
	hub.SetMessageHandler(h)
	hub.SetDisconnectHook(h.onDisconnect)
	return h
}

// onDisconnect 连接断开时同步玩家在线状态
func (h *GameMessageHandler) onDisconnect(client *Client) {
	if client.SessionID == "" {
		return
	}
	s, err := h.registry.GetSession(client.SessionID)
	if err != nil {
		return
	}
	s.SetConnected(client.PlayerID, false)
}

// HandleClientMessage 处理客户端消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error("解析消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		h.sendError(client, errors.New(errors.ErrMessageFormat))
		client.Close()
		return
	}

	if msg.Type == "" {
		h.sendError(client, errors.New(errors.ErrMessageFormat, "消息类型不能为空"))
		client.Close()
		return
	}

	h.logger.Debug("收到WebSocket消息",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type),
		zap.Int64("player_id", client.PlayerID))

	switch msg.Type {
	case MessageTypePing:
		h.reply(client, MessageTypePong, nil)

	case MessageTypePong:
		// 心跳响应

	case MessageTypeCreateRoom:
		h.handleCreateRoom(client, &msg)

	case MessageTypeJoinRoom:
		h.handleJoinRoom(client, &msg)

	case MessageTypeLeaveRoom:
		h.handleLeaveRoom(client)

	case MessageTypeListRooms:
		h.reply(client, MessageTypeListRooms, h.registry.ListRooms())

	case MessageTypeExtendStart:
		h.handleExtendStart(client)

	case MessageTypeSnapshot:
		h.handleSnapshot(client)

	case MessageTypeStartGame:
		h.handleStartGame(client)

	case MessageTypeSubmitHint:
		h.handleSubmitHint(client, &msg)

	case MessageTypeCastVote:
		h.handleCastVote(client, &msg)

	case MessageTypeSubmitDefense:
		h.handleSubmitDefense(client, &msg)

	case MessageTypeSurvivalVote:
		h.handleSurvivalVote(client, &msg)

	case MessageTypeSubmitGuess:
		h.handleSubmitGuess(client, &msg)

	default:
		h.logger.Warn("未知消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		h.sendError(client, errors.New(errors.ErrMessageFormat, "不支持的消息类型: "+msg.Type))
	}
}

// CreateRoomRequest 建房参数
type CreateRoomRequest struct {
	Title        string `json:"title"`
	Password     string `json:"password"`
	Rounds       int    `json:"rounds"`
	LiarCount    int    `json:"liar_count"`
	Mode         string `json:"mode"`
	TargetScore  int    `json:"target_score"`
	GuessOnCatch *bool  `json:"guess_on_catch"`
}

// handleCreateRoom 创建房间并自动入座
func (h *GameMessageHandler) handleCreateRoom(client *Client, msg *Message) {
	var req CreateRoomRequest
	if msg.Data != nil {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.sendError(client, errors.New(errors.ErrInvalidParam, "建房参数错误"))
			return
		}
	}

	cfg := SessionConfigFromRequest(&req)
	owner := &game.Player{ID: client.PlayerID, Nickname: client.Nickname}
	s, err := h.registry.CreateSession(owner, cfg, req.Password)
	if err != nil {
		h.sendError(client, err)
		return
	}

	client.SessionID = s.ID
	s.SetConnected(client.PlayerID, true)

	h.reply(client, MessageTypeCreateRoom, s.SnapshotFor(client.PlayerID))
}

// SessionConfigFromRequest 结合全局配置与建房参数生成会话规则
func SessionConfigFromRequest(req *CreateRoomRequest) *game.SessionConfig {
	c := config.Get()
	cfg := &game.SessionConfig{
		Title:           req.Title,
		Rounds:          c.Game.Rule.DefaultRounds,
		LiarCount:       c.Game.Rule.DefaultLiarCount,
		Mode:            game.ModeLiarsKnow,
		TargetScore:     c.Game.Rule.TargetScore,
		MinPlayers:      c.Game.Room.MinPlayers,
		MaxPlayers:      c.Game.Room.MaxPlayers,
		CanChangeVote:   c.Game.Rule.CanChangeVote,
		GuessOnCatch:    c.Game.Rule.GuessOnCatch,
		GuessSimilarity: c.Game.Rule.GuessSimilarity,
		Durations: game.PhaseDurations{
			Speech:       c.Game.Phase.Speech,
			Voting:       c.Game.Phase.Voting,
			Defense:      c.Game.Phase.Defense,
			SurvivalVote: c.Game.Phase.SurvivalVote,
			Guess:        c.Game.Phase.Guess,
		},
		Scores: game.ScoreTable{
			CitizenAccusedLiar: c.Game.Score.CitizenAccusedLiar,
			LiarSurvived:       c.Game.Score.LiarSurvived,
			LiarGuessedWord:    c.Game.Score.LiarGuessedWord,
			WrongExecutionLiar: c.Game.Score.WrongExecutionLiar,
			WrongVotePenalty:   c.Game.Score.WrongVotePenalty,
			RightVoteBonus:     c.Game.Score.RightVoteBonus,
		},
	}
	if req.Rounds > 0 {
		cfg.Rounds = req.Rounds
	}
	if req.LiarCount > 0 {
		cfg.LiarCount = req.LiarCount
	}
	if req.Mode == string(game.ModeLiarsDifferentWord) {
		cfg.Mode = game.ModeLiarsDifferentWord
	}
	if req.TargetScore > 0 {
		cfg.TargetScore = req.TargetScore
	}
	if req.GuessOnCatch != nil {
		cfg.GuessOnCatch = *req.GuessOnCatch
	}
	return cfg
}

// handleJoinRoom 按房间号加入
func (h *GameMessageHandler) handleJoinRoom(client *Client, msg *Message) {
	var req struct {
		RoomNumber int    `json:"room_number"`
		Password   string `json:"password"`
	}
	if msg.Data == nil || json.Unmarshal(msg.Data, &req) != nil {
		h.sendError(client, errors.New(errors.ErrInvalidParam, "加入参数错误"))
		return
	}

	s, err := h.registry.JoinRoom(req.RoomNumber, req.Password, client.PlayerID, client.Nickname)
	if err != nil {
		h.sendError(client, err)
		return
	}

	client.SessionID = s.ID
	s.SetConnected(client.PlayerID, true)

	h.reply(client, MessageTypeJoinRoom, s.SnapshotFor(client.PlayerID))
}

// handleLeaveRoom 离开房间
func (h *GameMessageHandler) handleLeaveRoom(client *Client) {
	s, ok := h.session(client)
	if !ok {
		return
	}

	empty, err := s.Leave(client.PlayerID)
	if err != nil {
		h.sendError(client, err)
		return
	}
	if empty {
		h.registry.RemoveSession(s.ID, "empty")
	}

	client.SessionID = ""
	h.reply(client, MessageTypeLeaveRoom, map[string]bool{"left": true})
}

// handleExtendStart 延长开局截止时间
func (h *GameMessageHandler) handleExtendStart(client *Client) {
	s, ok := h.session(client)
	if !ok {
		return
	}
	if err := s.ExtendStartDeadline(client.PlayerID, config.Get().Game.Room.StartExtension); err != nil {
		h.sendError(client, err)
	}
}

// handleSnapshot 按请求者视角下发快照
func (h *GameMessageHandler) handleSnapshot(client *Client) {
	s, ok := h.session(client)
	if !ok {
		return
	}
	h.reply(client, MessageTypeSnapshot, s.SnapshotFor(client.PlayerID))
}

// handleStartGame 开始游戏
func (h *GameMessageHandler) handleStartGame(client *Client) {
	s, ok := h.session(client)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.StartGame(ctx, client.PlayerID); err != nil {
		h.sendError(client, err)
		return
	}

	// 身份和词语属于私密信息，逐个单发
	snap := s.SnapshotFor(client.PlayerID)
	for _, pv := range snap.Players {
		personal := s.SnapshotFor(pv.ID)
		data, err := json.Marshal(personal)
		if err != nil {
			continue
		}
		h.hub.SendToPlayer(pv.ID, &Message{
			Type:      MessageTypeSnapshot,
			SessionID: s.ID,
			Data:      data,
			Timestamp: time.Now().Unix(),
		})
	}
}

// handleSubmitHint 提交发言
func (h *GameMessageHandler) handleSubmitHint(client *Client, msg *Message) {
	s, ok := h.session(client)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if msg.Data == nil || json.Unmarshal(msg.Data, &req) != nil {
		h.sendError(client, errors.New(errors.ErrInvalidParam, "发言参数错误"))
		return
	}
	if err := s.SubmitHint(client.PlayerID, req.Text); err != nil {
		h.sendError(client, err)
	}
}

// handleCastVote 指控投票
func (h *GameMessageHandler) handleCastVote(client *Client, msg *Message) {
	s, ok := h.session(client)
	if !ok {
		return
	}
	var req struct {
		TargetID int64 `json:"target_id"`
	}
	if msg.Data == nil || json.Unmarshal(msg.Data, &req) != nil {
		h.sendError(client, errors.New(errors.ErrInvalidParam, "投票参数错误"))
		return
	}
	if err := s.CastAccusationVote(client.PlayerID, req.TargetID); err != nil {
		h.sendError(client, err)
	}
}

// handleSubmitDefense 提交辩护
func (h *GameMessageHandler) handleSubmitDefense(client *Client, msg *Message) {
	s, ok := h.session(client)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if msg.Data == nil || json.Unmarshal(msg.Data, &req) != nil {
		h.sendError(client, errors.New(errors.ErrInvalidParam, "辩护参数错误"))
		return
	}
	if err := s.SubmitDefense(client.PlayerID, req.Text); err != nil {
		h.sendError(client, err)
	}
}

// handleSurvivalVote 终投
func (h *GameMessageHandler) handleSurvivalVote(client *Client, msg *Message) {
	s, ok := h.session(client)
	if !ok {
		return
	}
	var req struct {
		Execute bool `json:"execute"`
	}
	if msg.Data == nil || json.Unmarshal(msg.Data, &req) != nil {
		h.sendError(client, errors.New(errors.ErrInvalidParam, "终投参数错误"))
		return
	}
	if err := s.CastSurvivalVote(client.PlayerID, req.Execute); err != nil {
		h.sendError(client, err)
	}
}

// handleSubmitGuess 骗子猜词
func (h *GameMessageHandler) handleSubmitGuess(client *Client, msg *Message) {
	s, ok := h.session(client)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if msg.Data == nil || json.Unmarshal(msg.Data, &req) != nil {
		h.sendError(client, errors.New(errors.ErrInvalidParam, "猜词参数错误"))
		return
	}
	if err := s.SubmitGuess(client.PlayerID, req.Text); err != nil {
		h.sendError(client, err)
	}
}

// session 取出客户端所在会话
func (h *GameMessageHandler) session(client *Client) (*game.Session, bool) {
	if client.SessionID == "" {
		h.sendError(client, errors.New(errors.ErrPlayerNotInRoom))
		return nil, false
	}
	s, err := h.registry.GetSession(client.SessionID)
	if err != nil {
		client.SessionID = ""
		h.sendError(client, err)
		return nil, false
	}
	return s, true
}

// reply 回复请求方
func (h *GameMessageHandler) reply(client *Client, msgType string, data interface{}) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			h.logger.Error("序列化响应失败", zap.Error(err))
			return
		}
		raw = b
	}
	h.hub.SendToClient(client.ID, &Message{
		Type:      msgType,
		SessionID: client.SessionID,
		Data:      raw,
		Timestamp: time.Now().Unix(),
	})
}

// sendError 发送错误消息
func (h *GameMessageHandler) sendError(client *Client, err error) {
	appErr := errors.GetAppError(err)
	payload := map[string]interface{}{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != "" {
		payload["details"] = appErr.Details
	}
	data, _ := json.Marshal(payload)
	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypeError,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}
