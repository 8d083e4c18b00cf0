package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/liar-game/internal/game"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心
//
// 同时作为游戏事件的出口：Publish 在会话锁内被调用，
// 按到达顺序写入各客户端的发送缓冲，保证单会话事件先进先出。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 玩家ID到客户端的映射
	playerClients map[int64][]*Client
	playerMu      sync.RWMutex

	// 消息广播通道
	broadcast chan *Message

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 可选的消息处理器
	messageHandler MessageHandler

	// 注销回调，由游戏层挂接以同步连接状态
	onDisconnect func(client *Client)

	// 日志
	logger *zap.Logger
}

// MessageHandler 客户端消息处理器
type MessageHandler interface {
	HandleClientMessage(client *Client, data []byte)
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	PlayerID  int64           `json:"player_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 消息类型
const (
	// 系统消息
	MessageTypeConnected    = "connected"
	MessageTypeDisconnected = "disconnected"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
	MessageTypeEvent        = "event" // 游戏事件外层包装

	// 房间指令
	MessageTypeCreateRoom  = "create_room"
	MessageTypeJoinRoom    = "join_room"
	MessageTypeLeaveRoom   = "leave_room"
	MessageTypeListRooms   = "list_rooms"
	MessageTypeExtendStart = "extend_start"
	MessageTypeSnapshot    = "snapshot"

	// 对局指令
	MessageTypeStartGame     = "start_game"
	MessageTypeSubmitHint    = "submit_hint"
	MessageTypeCastVote      = "cast_vote"
	MessageTypeSubmitDefense = "submit_defense"
	MessageTypeSurvivalVote  = "survival_vote"
	MessageTypeSubmitGuess   = "submit_guess"
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		playerClients: make(map[int64][]*Client),
		broadcast:     make(chan *Message, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		logger:        logger,
	}
}

// SetMessageHandler 设置消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// SetDisconnectHook 设置注销回调
func (h *Hub) SetDisconnectHook(fn func(client *Client)) {
	h.onDisconnect = fn
}

// Run 运行Hub
func (h *Hub) Run() {
	go h.runHeartbeat()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	if client.PlayerID > 0 {
		h.playerMu.Lock()
		h.playerClients[client.PlayerID] = append(h.playerClients[client.PlayerID], client)
		h.playerMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.Int64("player_id", client.PlayerID))

	msg := &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if !ok {
		return
	}

	if client.PlayerID > 0 {
		h.playerMu.Lock()
		clients := h.playerClients[client.PlayerID]
		for i, c := range clients {
			if c.ID == client.ID {
				h.playerClients[client.PlayerID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.playerClients[client.PlayerID]) == 0 {
			delete(h.playerClients, client.PlayerID)
		}
		h.playerMu.Unlock()
	}

	if h.onDisconnect != nil {
		h.onDisconnect(client)
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Int64("player_id", client.PlayerID))
}

// broadcastMessage 广播消息
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
	h.clientsMu.RUnlock()
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToPlayer 发送消息给指定玩家的所有客户端
func (h *Hub) SendToPlayer(playerID int64, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.playerMu.RLock()
	clients := h.playerClients[playerID]
	h.playerMu.RUnlock()

	if len(clients) == 0 {
		return ErrPlayerNotConnected
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("玩家客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.Int64("player_id", playerID))
		}
	}
	return nil
}

// SendToSession 发送消息给指定会话的所有客户端
func (h *Hub) SendToSession(sessionID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.sendToSessionRaw(sessionID, data)
	return nil
}

// sendToSessionRaw 向会话内所有客户端投递已序列化的消息
func (h *Hub) sendToSessionRaw(sessionID string, data []byte) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for _, client := range h.clients {
		if client.SessionID != sessionID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// 不能在会话锁内阻塞，缓冲满则丢弃并记录
			h.logger.Warn("会话客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("session_id", sessionID))
		}
	}
}

// Publish 实现 game.EventSink
func (h *Hub) Publish(sessionID string, event *game.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("序列化游戏事件失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      MessageTypeEvent,
		SessionID: sessionID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("序列化事件消息失败", zap.Error(err))
		return
	}
	h.sendToSessionRaw(sessionID, data)
}

// OnlinePlayers 在线玩家列表
func (h *Hub) OnlinePlayers() []int64 {
	h.playerMu.RLock()
	defer h.playerMu.RUnlock()

	players := make([]int64, 0, len(h.playerClients))
	for playerID := range h.playerClients {
		players = append(players, playerID)
	}
	return players
}

// OnlineCount 在线连接数
func (h *Hub) OnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// runHeartbeat 运行心跳检测
func (h *Hub) runHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		ping := &Message{
			Type:      MessageTypePing,
			Timestamp: time.Now().Unix(),
		}
		h.broadcast <- ping
	}
}

// Broadcast 广播消息
func (h *Hub) Broadcast(message *Message) {
	h.broadcast <- message
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
