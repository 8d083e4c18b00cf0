package database

import (
	"fmt"

	"github.com/wfunc/liar-game/internal/logger"
	"github.com/wfunc/liar-game/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	migrationModels := []interface{}{
		// 题库
		&models.Subject{},
		&models.Word{},

		// 对局记录
		&models.GameHistory{},
		&models.RoomTermination{},

		// 会话状态
		&models.SessionState{},
	}

	logger.Info("开始数据库迁移...")

	if DB.Dialector.Name() == "sqlite" {
		// 禁用外键约束，避免重建表时的问题
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	// 初始化默认题库
	if err := initDefaultData(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	indexes := map[string]string{
		"idx_words_subject_id":             "CREATE INDEX IF NOT EXISTS idx_words_subject_id ON words(subject_id)",
		"idx_game_histories_winner":        "CREATE INDEX IF NOT EXISTS idx_game_histories_winner ON game_histories(winner)",
		"idx_game_histories_ended_at":      "CREATE INDEX IF NOT EXISTS idx_game_histories_ended_at ON game_histories(ended_at)",
		"idx_room_terminations_reason":     "CREATE INDEX IF NOT EXISTS idx_room_terminations_reason ON room_terminations(reason)",
		"idx_session_states_current_phase": "CREATE INDEX IF NOT EXISTS idx_session_states_current_phase ON session_states(current_phase)",
	}

	for name, stmt := range indexes {
		if err := DB.Exec(stmt).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", name), zap.Error(err))
		}
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// initDefaultData 初始化默认题库
func initDefaultData() error {
	var count int64
	DB.Model(&models.Subject{}).Count(&count)
	if count > 0 {
		return nil
	}

	defaultSubjects := []models.Subject{
		{
			Name:   "水果",
			Status: "active",
			Words: []models.Word{
				{Text: "苹果"}, {Text: "香蕉"}, {Text: "西瓜"},
				{Text: "葡萄"}, {Text: "草莓"}, {Text: "橙子"},
			},
		},
		{
			Name:   "动物",
			Status: "active",
			Words: []models.Word{
				{Text: "老虎"}, {Text: "狮子"}, {Text: "大象"},
				{Text: "猴子"}, {Text: "熊猫"}, {Text: "长颈鹿"},
			},
		},
		{
			Name:   "职业",
			Status: "active",
			Words: []models.Word{
				{Text: "医生"}, {Text: "教师"}, {Text: "警察"},
				{Text: "厨师"}, {Text: "程序员"}, {Text: "消防员"},
			},
		},
		{
			Name:   "交通工具",
			Status: "active",
			Words: []models.Word{
				{Text: "自行车"}, {Text: "汽车"}, {Text: "高铁"},
				{Text: "飞机"}, {Text: "轮船"}, {Text: "地铁"},
			},
		},
	}

	for _, subject := range defaultSubjects {
		if err := DB.Create(&subject).Error; err != nil {
			logger.Error("创建默认题库失败",
				zap.String("name", subject.Name),
				zap.Error(err),
			)
		}
	}

	logger.Info("默认题库初始化完成")
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
