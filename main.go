package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jars/api"
	"jars/assistant"
	"jars/cache"
	"jars/config"
	"jars/database"
	"jars/events"
	"jars/logger"
	"jars/middleware"
	"jars/repository"
	"jars/router"
	"jars/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// @title 六罐子预算 API
// @version 1.0
// @description 按六罐子法管理月度收入分配、流水、储蓄目标与预测
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println("六罐子预算 v1.0.0")
		return
	}

	// .env 可选，只用于本地开发
	_ = godotenv.Load()
	logger.Setup(os.Getenv("GIN_MODE"))

	// 加载配置（内置配置 + 可选的外部配置覆盖 + 环境变量）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("加载配置失败")
	}
	logger.Setup(cfg.Server.Mode)

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		log.Info().Str("port", port).Msg("命令行指定端口")
	}
	config.PrintConfig()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("数据库初始化失败")
	}
	store := repository.NewStore(db)

	dashboardCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("缓存初始化失败")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.Queue)
		if err != nil {
			log.Error().Err(err).Msg("连接消息队列失败，事件将不会发布")
		} else {
			publisher = p
		}
	}

	var mailer service.AllocationMailer
	if cfg.Email.Enabled {
		mailer = service.NewEmailService(&cfg.Email)
	}

	refresher, err := service.NewCacheRefresher(dashboardCache, db, cfg.Database.RefreshFunction)
	if err != nil {
		log.Fatal().Err(err).Msg("刷新函数配置错误")
	}
	hooks := service.NewHooks(refresher, publisher, mailer)

	users := service.NewUserService(store)
	provisioning := service.NewProvisioningService(store)
	ledger := service.NewLedgerService(store, hooks)
	allocation := service.NewAllocationService(store, hooks)
	targets := service.NewSavingTargetService(store, hooks)
	projection := service.NewProjectionService(store)
	balances := service.NewBalanceService(store, dashboardCache)
	identity := service.NewIdentityService(cfg.Identity, users, provisioning)
	forecastClient := service.NewForecastClient(cfg.Forecast)
	forecast := service.NewForecastService(forecastClient, store, targets)

	registry := assistant.NewDefaultRegistry(&assistant.Services{
		Allocation: allocation,
		Ledger:     ledger,
		Targets:    targets,
		Projection: projection,
	})

	scheduler := service.NewScheduler()
	if p, ok := dashboardCache.(cache.Purger); ok {
		if _, err := scheduler.Every(time.Minute, "purge-dashboard-cache", service.PurgeExpiredJob(p)); err != nil {
			log.Error().Err(err).Msg("注册缓存清理任务失败")
		}
	}
	if forecastClient.Enabled() && cfg.Forecast.HealthCheckIntervalMinutes > 0 {
		interval := time.Duration(cfg.Forecast.HealthCheckIntervalMinutes) * time.Minute
		if _, err := scheduler.Every(interval, "forecast-health-check", service.ForecastHealthCheckJob(forecastClient)); err != nil {
			log.Error().Err(err).Msg("注册预测探测任务失败")
		}
	}
	scheduler.Start()

	// 初始化 JWT
	if err := middleware.InitJWT(cfg); err != nil {
		log.Fatal().Err(err).Msg("JWT 初始化失败")
	}

	r := router.SetupRouter(cfg, &router.Handlers{
		Health:      api.NewHealthHandler(store),
		Auth:        api.NewAuthHandler(cfg, identity),
		Profile:     api.NewProfileHandler(users),
		Jar:         api.NewJarHandler(balances, provisioning, ledger),
		Income:      api.NewIncomeHandler(allocation, ledger),
		Transaction: api.NewTransactionHandler(ledger),
		Savings:     api.NewSavingsHandler(targets, projection),
		Analytics:   api.NewAnalyticsHandler(forecast, forecastClient),
		Export:      api.NewExportHandler(ledger),
		Assistant:   api.NewAssistantHandler(registry),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", cfg.Server.Port)).
			Str("api", fmt.Sprintf("http://localhost%s/api/v1/", cfg.Server.Port)).
			Msg("六罐子预算服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("关闭 HTTP 服务失败")
	}
	scheduler.Stop()
	hooks.Wait()

	if err := publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("关闭消息队列连接失败")
	}
	if c, ok := dashboardCache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭缓存连接失败")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("服务已退出")
}
