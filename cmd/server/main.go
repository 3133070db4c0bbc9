// PaiChe 车队司机排班引擎服务
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

	"github.com/paiche/paiche/internal/config"
	"github.com/paiche/paiche/internal/database"
	"github.com/paiche/paiche/internal/handler"
	"github.com/paiche/paiche/internal/metrics"
	"github.com/paiche/paiche/internal/middleware"
	"github.com/paiche/paiche/pkg/engine"
	"github.com/paiche/paiche/pkg/logger"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/pattern"
	"github.com/paiche/paiche/pkg/scorer"
	"github.com/paiche/paiche/pkg/signature"
	"github.com/paiche/paiche/pkg/validator"
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
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	fmt.Printf("PaiChe 车队排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	resolver := signature.NewResolver(nil)
	opts := engineOptions(&cfg.Engine)

	analyzeHandler := handler.NewAnalyzeHandler(resolver, opts)
	statsHandler := handler.NewStatsHandler(resolver, opts.ValidatorConfig.ShiftDurations)

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"paiche"}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "PaiChe 车队排班引擎 API v1",
			"endpoints": {
				"analyze": {
					"week": "POST /api/v1/analyze/week",
					"week_db": "POST /api/v1/analyze/week/db"
				},
				"patterns": {
					"rebuild": "POST /api/v1/patterns/rebuild",
					"slot": "GET /api/v1/patterns/slot"
				},
				"stats": {
					"workload": "POST /api/v1/stats/workload",
					"coverage": "POST /api/v1/stats/coverage"
				},
				"resources": {
					"drivers": "GET|POST|PUT|DELETE /api/v1/drivers",
					"blocks": "GET|POST|PUT|DELETE /api/v1/blocks",
					"rules": "GET|POST|PUT|DELETE /api/v1/rules"
				}
			}
		}`))
	})

	// 批次分析 API
	mux.HandleFunc("/api/v1/analyze/week", analyzeHandler.AnalyzeWeek)

	// 统计分析 API
	mux.HandleFunc("/api/v1/stats/workload", statsHandler.Workload)
	mux.HandleFunc("/api/v1/stats/coverage", statsHandler.Coverage)

	// 持久化相关 API（需要数据库）
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		defer db.Close()

		patternHandler := handler.NewPatternHandler(db, resolver, opts.PatternParams)
		mux.HandleFunc("/api/v1/patterns/rebuild", patternHandler.Rebuild)
		mux.HandleFunc("/api/v1/patterns/slot", patternHandler.Slot)

		// 数据库驱动的批次分析：快照从库加载
		weekHandler := handler.NewWeekHandler(db, resolver, opts)
		mux.HandleFunc("/api/v1/analyze/week/db", weekHandler.AnalyzeWeek)

		// 基础资源管理
		mux.HandleFunc("/api/v1/drivers", handler.NewDriverHandler(db).Handle)
		mux.HandleFunc("/api/v1/blocks", handler.NewBlockHandler(db).Handle)
		mux.HandleFunc("/api/v1/rules", handler.NewRuleHandler(db).Handle)

		go reportDBStats(db)
	} else {
		logger.Info().Msg("数据库未启用，持久化端点不可用")
	}

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// 中间件执行顺序：requestID -> recovery -> cors -> logging -> handler
	root := middleware.Chain(
		middleware.RequestID,
		middleware.Recovery,
		middleware.CORS,
		middleware.Logging,
	)(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
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
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// engineOptions 将应用配置转换为引擎参数
func engineOptions(cfg *config.EngineConfig) engine.Options {
	opts := engine.DefaultOptions()
	opts.PatternParams = pattern.Params{
		LookbackWeeks:      cfg.LookbackWeeks,
		HalfLifeWeeks:      cfg.HalfLifeWeeks,
		OwnershipThreshold: cfg.OwnershipThreshold,
		RecentWindowWeeks:  cfg.RecentWindowWeeks,
	}
	opts.ValidatorConfig = &validator.Config{
		MinRestHours: cfg.MinRestHours,
		ShiftDurations: map[model.ContractType]time.Duration{
			model.ContractSolo1: time.Duration(cfg.SoloShiftHours) * time.Hour,
			model.ContractSolo2: time.Duration(cfg.SoloShiftHours) * time.Hour,
			model.ContractTeam:  time.Duration(cfg.TeamShiftHours) * time.Hour,
		},
	}
	opts.Weights = scorer.DefaultWeights()
	return opts
}

// reportDBStats 周期性上报数据库连接池指标
func reportDBStats(db *database.DB) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	gauge := metrics.GetRegistry().GetGauge("paiche_db_connections")
	if gauge == nil {
		return
	}

	for range ticker.C {
		s := db.Stats()
		gauge.Set(float64(s.InUse), "in_use")
		gauge.Set(float64(s.Idle), "idle")
	}
}
