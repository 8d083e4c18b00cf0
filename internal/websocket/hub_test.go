package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-game/internal/game"
	"go.uber.org/zap"
)

// newTestClient 构造不带真实连接的客户端，直接读Send缓冲验证投递
func newTestClient(id string, playerID int64, sessionID string) *Client {
	return &Client{
		ID:        id,
		PlayerID:  playerID,
		Nickname:  "测试玩家",
		Send:      make(chan []byte, 256),
		SessionID: sessionID,
	}
}

func drainMessages(t *testing.T, c *Client) []*Message {
	t.Helper()
	var msgs []*Message
	for {
		select {
		case data := <-c.Send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			msgs = append(msgs, &msg)
		default:
			return msgs
		}
	}
}

func TestHub_RegisterAndOnline(t *testing.T) {
	h := NewHub(zap.NewNop())

	c1 := newTestClient("c1", 1, "s1")
	c2 := newTestClient("c2", 2, "s1")
	h.registerClient(c1)
	h.registerClient(c2)

	assert.Equal(t, 2, h.OnlineCount())
	assert.ElementsMatch(t, []int64{1, 2}, h.OnlinePlayers())

	// 注册时推送connected欢迎消息
	msgs := drainMessages(t, c1)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageTypeConnected, msgs[0].Type)
}

func TestHub_PublishFIFO(t *testing.T) {
	h := NewHub(zap.NewNop())

	c1 := newTestClient("c1", 1, "s1")
	other := newTestClient("c2", 2, "s2")
	h.registerClient(c1)
	h.registerClient(other)
	drainMessages(t, c1)
	drainMessages(t, other)

	for i := uint64(1); i <= 5; i++ {
		h.Publish("s1", &game.Event{
			SchemaVersion: 1,
			Seq:           i,
			SessionID:     "s1",
			Type:          game.EventPhaseChange,
		})
	}

	msgs := drainMessages(t, c1)
	require.Len(t, msgs, 5)
	for i, msg := range msgs {
		assert.Equal(t, MessageTypeEvent, msg.Type)
		var ev game.Event
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		// 投递顺序与发布顺序一致
		assert.Equal(t, uint64(i+1), ev.Seq)
	}

	// 其他会话的客户端不应收到
	assert.Empty(t, drainMessages(t, other))
}

func TestHub_SendToPlayer(t *testing.T) {
	h := NewHub(zap.NewNop())

	c1 := newTestClient("c1", 7, "s1")
	h.registerClient(c1)
	drainMessages(t, c1)

	err := h.SendToPlayer(7, &Message{Type: MessageTypeSnapshot})
	require.NoError(t, err)

	msgs := drainMessages(t, c1)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageTypeSnapshot, msgs[0].Type)

	// 未连接玩家
	assert.ErrorIs(t, h.SendToPlayer(99, &Message{Type: MessageTypePing}), ErrPlayerNotConnected)
}

func TestHub_SendToClient_NotFound(t *testing.T) {
	h := NewHub(zap.NewNop())
	assert.ErrorIs(t, h.SendToClient("missing", &Message{Type: MessageTypePing}), ErrClientNotFound)
}

func TestHub_UnregisterInvokesDisconnectHook(t *testing.T) {
	h := NewHub(zap.NewNop())

	var disconnected *Client
	h.SetDisconnectHook(func(c *Client) { disconnected = c })

	c1 := newTestClient("c1", 1, "s1")
	h.registerClient(c1)
	h.unregisterClient(c1)

	require.NotNil(t, disconnected)
	assert.Equal(t, "c1", disconnected.ID)
	assert.Equal(t, 0, h.OnlineCount())
	assert.Empty(t, h.OnlinePlayers())

	// 重复注销应当是安全的
	h.unregisterClient(c1)
}
