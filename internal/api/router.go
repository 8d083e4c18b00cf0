package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-game/internal/game"
	"github.com/wfunc/liar-game/internal/middleware"
	"github.com/wfunc/liar-game/internal/repository"
	"github.com/wfunc/liar-game/internal/utils"
	ws "github.com/wfunc/liar-game/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	authHandler    *AuthHandler
	roomHandler    *RoomHandler
	gameHandler    *GameHandler
	historyHandler *HistoryHandler
	subjectHandler *SubjectHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// RouterDeps 路由器依赖
type RouterDeps struct {
	DB          *gorm.DB
	Registry    *game.Registry
	Hub         *ws.Hub
	JWTManager  *utils.JWTManager
	SubjectRepo repository.SubjectRepository
	HistoryRepo repository.HistoryRepository
	Logger      *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(deps *RouterDeps) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	router := &Router{
		engine:         engine,
		db:             deps.DB,
		authHandler:    NewAuthHandler(deps.JWTManager, deps.Logger),
		roomHandler:    NewRoomHandler(deps.Registry),
		gameHandler:    NewGameHandler(deps.Registry, deps.Logger),
		historyHandler: NewHistoryHandler(deps.HistoryRepo, deps.Logger),
		subjectHandler: NewSubjectHandler(deps.SubjectRepo, deps.Logger),
		wsHandler:      NewWebSocketHandler(deps.Hub, deps.Logger),
		authMiddleware: middleware.NewAuthMiddleware(deps.JWTManager),
		log:            deps.Logger,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/guest", r.authHandler.GuestLogin)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.GET("/profile", r.authHandler.Profile)
			}
		}

		// 房间与游戏动作路由（登录后可见）
		rooms := v1.Group("/rooms")
		rooms.Use(r.authMiddleware.RequireAuth())
		{
			rooms.GET("", r.roomHandler.ListRooms)
			rooms.POST("", r.gameHandler.CreateRoom)
			rooms.GET("/:number", r.roomHandler.GetRoom)
			rooms.POST("/:number/join", r.gameHandler.JoinRoom)
			rooms.POST("/:number/leave", r.gameHandler.LeaveRoom)
			rooms.GET("/:number/snapshot", r.gameHandler.Snapshot)
			rooms.POST("/:number/start", r.gameHandler.StartGame)
			rooms.POST("/:number/extend", r.gameHandler.ExtendStart)
			rooms.POST("/:number/hint", r.gameHandler.SubmitHint)
			rooms.POST("/:number/vote", r.gameHandler.CastVote)
			rooms.POST("/:number/defense", r.gameHandler.SubmitDefense)
			rooms.POST("/:number/survival", r.gameHandler.SurvivalVote)
			rooms.POST("/:number/guess", r.gameHandler.SubmitGuess)
		}

		// 对局历史路由
		history := v1.Group("/history")
		history.Use(r.authMiddleware.RequireAuth())
		{
			history.GET("", r.historyHandler.ListHistories)
			history.GET("/summary", r.historyHandler.Summary)
			history.GET("/terminations", r.historyHandler.ListTerminations)
			history.GET("/:session_id", r.historyHandler.GetHistory)
		}

		// 题库管理路由
		subjects := v1.Group("/subjects")
		subjects.Use(r.authMiddleware.RequireAuth())
		{
			subjects.GET("", r.subjectHandler.ListSubjects)
			subjects.POST("", r.subjectHandler.CreateSubject)
			subjects.POST("/:id/words", r.subjectHandler.AddWords)
			subjects.DELETE("/:id", r.subjectHandler.DeleteSubject)
		}

		// 在线统计
		stats := v1.Group("/stats")
		stats.Use(r.authMiddleware.RequireAuth())
		{
			stats.GET("/rooms", r.roomHandler.Stats)
			stats.GET("/online", r.wsHandler.GetOnlineCount)
		}
	}

	// WebSocket路由，令牌可通过query参数传递
	wsGroup := r.engine.Group("/ws")
	wsGroup.Use(r.authMiddleware.RequireAuth())
	{
		wsGroup.GET("/game", r.wsHandler.GameWebSocket)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("启动API服务", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
