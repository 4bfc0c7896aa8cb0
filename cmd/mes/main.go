package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/handler"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/sse"
	"github.com/bitfantasy/nimo-mes/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-mes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 初始化Redis（看板缓存）
	rdb := initRedis(cfg.Redis)

	if err := db.AutoMigrate(
		&entity.RouteTemplate{},
		&entity.RouteTemplateStep{},
		&entity.ProductionPlan{},
		&entity.ProductionStep{},
		&entity.ProductionCard{},
		&entity.CardMovement{},
		&entity.TrackingEvent{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// AutoMigrate 不支持部分唯一索引，用原始 SQL 补
	migrationSQL := []string{
		// 同一张卡最多一条未关闭流转（end_time IS NULL）
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_mes_card_movements_open ON mes_card_movements(card_id) WHERE end_time IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_mes_card_movements_card_start ON mes_card_movements(card_id, start_time)",
		"CREATE INDEX IF NOT EXISTS idx_mes_production_steps_plan_status ON mes_production_steps(plan_id, status)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration warning", zap.String("sql", sql), zap.Error(err))
		}
	}
	zapLogger.Info("MES database migration completed")

	// SSE hub（注入各服务，不使用全局单例）
	hub := sse.NewHub()

	// 仓库、服务、处理器
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, hub, zapLogger)
	handlers := handler.NewHandlers(services, hub)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 唯一约束冲突翻译为 gorm.ErrDuplicatedKey，签发重试依赖它区分错误类别
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	{
		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("/sse")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/tracking", h.SSE.Stream)
		}

		// MES API（需要认证）
		mes := v1.Group("/mes")
		mes.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 工艺路线模板
			templates := mes.Group("/route-templates")
			{
				templates.GET("", h.Template.ListTemplates)
				templates.POST("", h.Template.CreateTemplate)
				templates.GET("/:id", h.Template.GetTemplate)
				templates.PUT("/:id", h.Template.UpdateTemplate)
				templates.PUT("/:id/steps", h.Template.ReplaceSteps)
				templates.DELETE("/:id", h.Template.DeleteTemplate)
			}

			// 生产计划
			plans := mes.Group("/plans")
			{
				plans.GET("", h.Plan.ListPlans)
				plans.POST("", h.Plan.CreatePlan)
				plans.GET("/:id", h.Plan.GetPlan)
				plans.POST("/:id/apply-template", h.Plan.ApplyTemplate)
				plans.GET("/:id/steps", h.Plan.GetSteps)
				plans.POST("/:id/cancel", h.Plan.CancelPlan)
			}

			// 计划工序
			steps := mes.Group("/steps")
			{
				steps.POST("/:id/start", h.Plan.StartStep)
				steps.POST("/:id/complete", h.Plan.CompleteStep)
			}

			// 生产流转卡
			cards := mes.Group("/cards")
			{
				cards.GET("", h.Card.ListCards)
				cards.POST("", h.Card.IssueCard)
				cards.GET("/barcode/:barcode", h.Card.LookupByBarcode)
				cards.GET("/:id", h.Card.GetCard)
				cards.POST("/:id/print", h.Card.RecordPrint)
				cards.GET("/:id/movements", h.Movement.ListCardMovements)
				cards.POST("/:id/movements", h.Movement.StartMovement)
				cards.GET("/:id/movements/export", h.Card.ExportMovements)
			}

			// 流转记录
			movements := mes.Group("/movements")
			{
				movements.GET("/:id", h.Movement.GetMovement)
				movements.POST("/:id/complete", h.Movement.CompleteMovement)
			}

			// 跟踪看板
			tracking := mes.Group("/tracking")
			{
				tracking.GET("/summary", h.Tracking.GetSummary)
				tracking.GET("/delays", h.Tracking.GetDelayedSteps)
				tracking.GET("/events", h.Tracking.ListEvents)
			}
		}
	}
}
