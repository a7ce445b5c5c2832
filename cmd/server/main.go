package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/config"
	"github.com/Huzaifa785/rewear-backend/internal/api/handler"
	"github.com/Huzaifa785/rewear-backend/internal/api/router"
	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/notify"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
	"github.com/Huzaifa785/rewear-backend/internal/service"
	"github.com/Huzaifa785/rewear-backend/pkg/database"
	"github.com/Huzaifa785/rewear-backend/pkg/jwt"
	applogger "github.com/Huzaifa785/rewear-backend/pkg/logger"
	"github.com/Huzaifa785/rewear-backend/pkg/redis"
	"github.com/Huzaifa785/rewear-backend/pkg/tracing"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	skipMigrations := pflag.Bool("skip-migrations", false, "启动时跳过数据库迁移")
	pflag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 链路追踪
	shutdownTracing, err := tracing.Init(context.Background(), &cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	// 4. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	if *skipMigrations {
		logger.Info("已跳过数据库迁移")
	} else if err := migrate(cfg, db, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单、限流与通知推送将不可用", zap.Error(err))
			rdb = nil
		}
	}

	// 6. 通知分发器
	repo := repository.NewRepository(db)
	dispatcher := notify.NewDispatcher(logger, cfg.Notification.DeliverTimeout, buildSinks(cfg, repo, rdb, logger)...)
	dispatcher.Start(context.Background())

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 避免把 nil *redis.Client 装进接口
	var blacklist service.TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, dispatcher, logger)
	h := handler.NewHandler(svc)

	// 8. 过期扫描
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		svc.Sweeper.Run(sweepCtx)
	}()

	// 9. 启动 HTTP 服务器（优雅关闭）
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	stopSweep()
	<-sweepDone

	// 请求已全部结束，排空剩余通知
	if err := dispatcher.Close(ctx); err != nil {
		logger.Warn("通知队列未能排空", zap.Error(err))
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("关闭链路追踪失败", zap.Error(err))
	}

	// 关闭数据库连接
	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// migrate postgres 走 golang-migrate 版本化迁移，sqlite 本地开发直接按模型建表
func migrate(cfg *config.Config, db *gorm.DB, logger *zap.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		return database.AutoMigrate(db, logger, model.All()...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return database.RunMigrations(sqlDB, logger)
}

// buildSinks 按配置组装通知投递通道；日志通道始终启用
func buildSinks(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) []notify.Sink {
	var sinks []notify.Sink
	if cfg.Notification.InboxEnabled {
		sinks = append(sinks, notify.NewInboxSink(repo.Notification))
	}
	if cfg.Notification.RedisEnabled && rdb != nil {
		sinks = append(sinks, notify.NewRedisSink(rdb, cfg.Notification.RedisChannelPrefix))
	}
	return append(sinks, notify.NewLogSink(logger))
}
