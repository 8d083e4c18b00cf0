package game

import "time"

// Clock 时间源，测试中可替换
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) *time.Timer
}

// realClock 系统时钟
type realClock struct{}

// Now 当前时间
func (realClock) Now() time.Time {
	return time.Now()
}

// AfterFunc 延迟执行
func (realClock) AfterFunc(d time.Duration, f func()) *time.Timer {
	return time.AfterFunc(d, f)
}

// NewRealClock 创建系统时钟
func NewRealClock() Clock {
	return realClock{}
}

// scheduleDeadline 为当前阶段安排截止回调（须持锁调用）
//
// 回调携带安排时刻的 PhaseSeq，到期后经 OnDeadline 重新进入
// 单写者边界；阶段已经推进时该回调被静默丢弃，因此不需要
// 跨协程取消定时器。
func (s *Session) scheduleDeadline(d time.Duration) {
	if d <= 0 {
		s.Deadline = time.Time{}
		return
	}
	s.Deadline = s.clock.Now().Add(d)
	seq := s.PhaseSeq
	s.clock.AfterFunc(d, func() {
		s.OnDeadline(seq)
	})
}

// deadlineMilli 当前截止时间的unix毫秒（须持锁调用）
func (s *Session) deadlineMilli() int64 {
	if s.Deadline.IsZero() {
		return 0
	}
	return s.Deadline.UnixMilli()
}
