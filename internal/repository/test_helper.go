package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置内存数据库
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	err = db.AutoMigrate(
		// 题库
		&models.Subject{},
		&models.Word{},

		// 对局记录
		&models.GameHistory{},
		&models.RoomTermination{},

		// 会话状态
		&models.SessionState{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 关闭测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedSubjects 写入基础题库
func SeedSubjects(t *testing.T, db *gorm.DB) {
	t.Helper()

	subjects := []models.Subject{
		{
			Name:   "水果",
			Status: "active",
			Words: []models.Word{
				{Text: "苹果"},
				{Text: "香蕉"},
				{Text: "西瓜"},
			},
		},
		{
			Name:   "动物",
			Status: "active",
			Words: []models.Word{
				{Text: "老虎"},
				{Text: "狮子"},
			},
		},
		{
			// 词语不足，不应被抽取
			Name:   "残缺主题",
			Status: "active",
			Words: []models.Word{
				{Text: "孤词"},
			},
		},
		{
			// 停用主题不参与抽取
			Name:   "停用主题",
			Status: "disabled",
			Words: []models.Word{
				{Text: "甲"},
				{Text: "乙"},
			},
		},
	}
	require.NoError(t, db.Create(&subjects).Error)
}
