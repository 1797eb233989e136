// BanBiao 排班生成与优化引擎
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

	"github.com/banbiao/banbiao/internal/config"
	"github.com/banbiao/banbiao/internal/database"
	"github.com/banbiao/banbiao/internal/handler"
	"github.com/banbiao/banbiao/internal/loader"
	"github.com/banbiao/banbiao/internal/lock"
	"github.com/banbiao/banbiao/internal/metrics"
	"github.com/banbiao/banbiao/internal/middleware"
	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/internal/security"
	"github.com/banbiao/banbiao/internal/service"
	"github.com/banbiao/banbiao/pkg/logger"
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

	// 初始化日志
	logFormat := "json"
	if cfg.IsDevelopment() {
		logFormat = "console"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: logFormat,
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("BanBiao 排班引擎启动中")

	// 连接数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("数据库连接失败")
		os.Exit(1)
	}
	defer db.Close()

	// 仓储层
	employees := repository.NewEmployeeRepository(db)
	shifts := repository.NewShiftRepository(db)
	rules := repository.NewRuleRepository(db)
	schedules := repository.NewScheduleRepository(db)

	// 引擎装配
	dataLoader := loader.New(employees, shifts, rules, schedules)
	locks := lock.NewRegistry()
	svc := service.New(db, schedules, dataLoader, locks, cfg.Engine)

	// 处理器
	scheduleHandler := handler.NewScheduleHandler(svc, schedules)
	employeeHandler := handler.NewEmployeeHandler(employees)
	shiftHandler := handler.NewShiftHandler(shifts)
	ruleHandler := handler.NewRuleHandler(rules)
	statsHandler := handler.NewStatsHandler(schedules, dataLoader, cfg.Engine.StandardWeeklyHours)
	swapHandler := handler.NewSwapHandler(schedules, dataLoader, cfg.Engine.ConstraintSettings())

	// API 密钥与限流
	keyManager := security.NewAPIKeyManager()
	if bootstrapKey := os.Getenv("API_BOOTSTRAP_KEY"); bootstrapKey != "" {
		keyManager.Register(&security.APIKey{
			Key:       bootstrapKey,
			Name:      "bootstrap",
			Scopes:    []string{"*"},
			CreatedAt: time.Now(),
			Enabled:   true,
		})
	} else if cfg.IsDevelopment() {
		devKey, err := keyManager.GenerateKey("dev", []string{"*"}, nil)
		if err != nil {
			logger.Error().Err(err).Msg("开发密钥生成失败")
			os.Exit(1)
		}
		logger.Info().Str("api_key", devKey.Key).Msg("已生成开发环境 API 密钥")
	}
	rateLimiter := security.NewRateLimiter(cfg.API.RateLimit, time.Minute)

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"banbiao"}`))
	})

	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 排班表 API
	// ========================================

	mux.HandleFunc("POST /api/v1/schedules/generate", scheduleHandler.Generate)
	mux.HandleFunc("POST /api/v1/schedules/validate", scheduleHandler.Validate)
	mux.HandleFunc("GET /api/v1/schedules", scheduleHandler.List)
	mux.HandleFunc("GET /api/v1/schedules/{id}", scheduleHandler.Get)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", scheduleHandler.Delete)
	mux.HandleFunc("POST /api/v1/schedules/{id}/optimize", scheduleHandler.Optimize)
	mux.HandleFunc("GET /api/v1/schedules/{id}/conflicts", scheduleHandler.CheckConflicts)
	mux.HandleFunc("GET /api/v1/schedules/{id}/stats", statsHandler.Get)

	// 状态流转
	mux.HandleFunc("POST /api/v1/schedules/{id}/submit", scheduleHandler.Submit)
	mux.HandleFunc("POST /api/v1/schedules/{id}/approve", scheduleHandler.Approve)
	mux.HandleFunc("POST /api/v1/schedules/{id}/reject", scheduleHandler.Reject)
	mux.HandleFunc("POST /api/v1/schedules/{id}/publish", scheduleHandler.Publish)
	mux.HandleFunc("POST /api/v1/schedules/{id}/archive", scheduleHandler.Archive)

	// 换班推荐
	mux.HandleFunc("GET /api/v1/schedules/{id}/assignments/{assignment_id}/swap-candidates", swapHandler.Recommend)
	mux.HandleFunc("POST /api/v1/schedules/{id}/assignments/{assignment_id}/auto-swap", swapHandler.AutoAssign)

	// ========================================
	// 员工 API
	// ========================================

	mux.HandleFunc("POST /api/v1/employees", employeeHandler.Create)
	mux.HandleFunc("GET /api/v1/employees", employeeHandler.List)
	mux.HandleFunc("GET /api/v1/employees/{id}", employeeHandler.Get)
	mux.HandleFunc("PUT /api/v1/employees/{id}", employeeHandler.Update)
	mux.HandleFunc("DELETE /api/v1/employees/{id}", employeeHandler.Delete)
	mux.HandleFunc("GET /api/v1/employees/{id}/assignments", scheduleHandler.EmployeeAssignments)

	// ========================================
	// 班次 API
	// ========================================

	mux.HandleFunc("POST /api/v1/shifts", shiftHandler.Create)
	mux.HandleFunc("POST /api/v1/shifts/batch", shiftHandler.CreateBatch)
	mux.HandleFunc("GET /api/v1/shifts", shiftHandler.List)
	mux.HandleFunc("GET /api/v1/shifts/{id}", shiftHandler.Get)
	mux.HandleFunc("PUT /api/v1/shifts/{id}", shiftHandler.Update)
	mux.HandleFunc("DELETE /api/v1/shifts/{id}", shiftHandler.Delete)

	// ========================================
	// 规则 API
	// ========================================

	mux.HandleFunc("GET /api/v1/rules/catalog", ruleHandler.Catalog)
	mux.HandleFunc("POST /api/v1/rules", ruleHandler.Create)
	mux.HandleFunc("GET /api/v1/rules", ruleHandler.List)
	mux.HandleFunc("GET /api/v1/rules/{id}", ruleHandler.Get)
	mux.HandleFunc("PUT /api/v1/rules/{id}", ruleHandler.Update)
	mux.HandleFunc("DELETE /api/v1/rules/{id}", ruleHandler.Delete)

	// ========================================
	// 中间件
	// ========================================

	mws := []func(http.Handler) http.Handler{
		middleware.Recovery,
		middleware.RequestID,
		middleware.Logging,
		middleware.SecurityHeaders,
	}
	if cfg.API.CORS.Enabled {
		mws = append(mws, middleware.CORS(cfg.API.CORS.Origins))
	}
	mws = append(mws, middleware.Auth(&middleware.AuthConfig{
		APIKeyManager:   keyManager,
		RateLimiter:     rateLimiter,
		SkipPaths:       []string{"/health", "/version", cfg.Metrics.Path},
		EnableRateLimit: cfg.API.RateLimit > 0,
	}))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
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
