package game

import (
	"context"

	"github.com/wfunc/liar-game/internal/models"
)

// SubjectPicker 抽取一局游戏使用的主题与词语对
//
// 词库本身由仓储层维护，引擎只消费接口。
type SubjectPicker interface {
	PickWordPair(ctx context.Context) (WordPair, error)
}

// HistoryStore 对局归档出口
type HistoryStore interface {
	// RecordGameHistory 在 GAME_OVER 时写入对局汇总
	RecordGameHistory(ctx context.Context, h *models.GameHistory) error
	// RecordTermination 在房间异常解散时写入终止记录
	RecordTermination(ctx context.Context, t *models.RoomTermination) error
}
