package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/wfunc/liar-game/internal/api"
	"github.com/wfunc/liar-game/internal/config"
	"github.com/wfunc/liar-game/internal/database"
	"github.com/wfunc/liar-game/internal/errors"
	"github.com/wfunc/liar-game/internal/game"
	"github.com/wfunc/liar-game/internal/logger"
	"github.com/wfunc/liar-game/internal/repository"
	"github.com/wfunc/liar-game/internal/utils"
	"github.com/wfunc/liar-game/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	hub      *websocket.Hub
	registry *game.Registry
	router   *api.Router
	httpSrv  *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	setupSystem(&cfg.System)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动谁是卧底游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}

	db := database.GetDB()

	// 仓储
	subjectRepo := repository.NewSubjectRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	persister := game.NewDatabaseStatePersister(db, s.logger)

	// 清理上次运行遗留的会话状态
	recovery := game.NewRecoveryManager(s.logger, persister, historyRepo)
	if report, err := recovery.SweepWithTimeout(30 * time.Second); err != nil {
		s.logger.Warn("遗留会话清理失败", zap.Error(err))
	} else if report.Scanned > 0 {
		s.logger.Info("遗留会话清理完成",
			zap.Int("scanned", report.Scanned),
			zap.Int("terminated", report.Terminated),
			zap.Int("cleared", report.Cleared))
	}

	// WebSocket中心，同时作为游戏事件出口
	s.hub = websocket.NewHub(s.logger)
	go s.hub.Run()

	// 会话注册表
	s.registry = game.NewRegistry(&game.RegistryConfig{
		Logger:          s.logger,
		Sink:            s.hub,
		Picker:          subjectRepo,
		Persister:       persister,
		History:         historyRepo,
		MaxRooms:        s.cfg.Game.Room.MaxRooms,
		SessionTimeout:  s.cfg.Game.Room.SessionTimeout,
		CleanupInterval: s.cfg.Game.Room.CleanupInterval,
		StartDeadline:   s.cfg.Game.Room.StartDeadline,
	})
	s.registry.StartCleanupTask(s.ctx)

	// 游戏消息分发器，注册到Hub
	websocket.NewGameMessageHandler(s.hub, s.registry, s.logger)

	// JWT
	jwtCfg := s.cfg.Security.JWT
	jwtManager := utils.NewJWTManager(
		jwtCfg.Secret,
		time.Duration(jwtCfg.ExpireHours)*time.Hour,
		time.Duration(jwtCfg.RefreshHours)*time.Hour,
	)

	// HTTP路由
	s.router = api.NewRouter(&api.RouterDeps{
		DB:          db,
		Registry:    s.registry,
		Hub:         s.hub,
		JWTManager:  jwtManager,
		SubjectRepo: subjectRepo,
		HistoryRepo: historyRepo,
		Logger:      s.logger,
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		s.logger.Info("HTTP服务监听中", zap.String("address", addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.cfg = newCfg
	})

	s.logger.Info("服务器启动成功", zap.String("http", addr))

	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
		}
	}

	// 取消主上下文，停止Hub和清理任务
	s.cancel()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	// 同步日志
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err == nil {
		rLimit.Cur = rLimit.Max
		syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("谁是卧底游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("谁是卧底游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  liar-game-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  LIAR_GAME_SERVER_MODE   运行模式 (development/production/test)")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  liar-game-server -config=/path/to/config.yaml")
	fmt.Println("  liar-game-server -version")
}
