// 排班规划服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/planner/internal/config"
	"github.com/paiban/planner/internal/database"
	"github.com/paiban/planner/internal/handler"
	"github.com/paiban/planner/internal/metrics"
	"github.com/paiban/planner/internal/middleware"
	"github.com/paiban/planner/internal/repository"
	"github.com/paiban/planner/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(cfg.Logger())

	fmt.Printf("排班规划服务 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("连接数据库失败")
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Migrate(context.Background()); err != nil {
			logger.Error().Err(err).Msg("数据库迁移失败")
			os.Exit(1)
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(cfg.Metrics.Namespace)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      newRouter(cfg, db, collector),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("version", Version).
			Str("engine", cfg.Solver.Engine).
			Bool("database", db != nil).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		return
	}

	logger.Info().Msg("服务器已关闭")
}

// newRouter 注册路由并组装中间件
// db 或 collector 为 nil 时不提供对应功能
func newRouter(cfg *config.Config, db *database.DB, collector *metrics.Collector) http.Handler {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"degraded","database":%q}`, err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"planner"}`))
	})

	// 版本信息端点
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	opts := []handler.Option{
		handler.WithEngine(cfg.Solver.Engine),
		handler.WithSolveTimeout(cfg.Server.SolveTimeout),
	}
	if db != nil {
		opts = append(opts, handler.WithRepository(repository.NewPlanRepository(db)))
	}

	// 中间件执行顺序：requestID -> rateLimit -> cors -> logging -> handler
	mws := []middleware.Middleware{middleware.RequestID}
	if cfg.Server.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimit)))
	}
	mws = append(mws, middleware.CORS)

	if collector != nil {
		opts = append(opts, handler.WithObserver(collector))
		mux.Handle("GET "+cfg.Metrics.Path, collector.Handler())
		mws = append(mws, middleware.Logging(collector))
	} else {
		mws = append(mws, middleware.Logging(nil))
	}

	handler.NewPlanHandler(opts...).Register(mux)

	return middleware.Chain(mux, mws...)
}
