// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swiftshare-go/internal/config"
	"swiftshare-go/internal/handler"
	"swiftshare-go/internal/middleware"
	"swiftshare-go/internal/model"
	"swiftshare-go/internal/notify"
	"swiftshare-go/internal/repository"
	"swiftshare-go/internal/service"
	"swiftshare-go/pkg/database"
	"swiftshare-go/pkg/kafka"
	"swiftshare-go/pkg/log"
	"swiftshare-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化存储后端
	var fileRepo repository.FileRepository
	switch cfg.Share.Backend {
	case "mysql":
		database.InitMySQL(cfg.Database.MySQL.DSN)
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err := database.DB.AutoMigrate(&model.FileRecord{}); err != nil {
			log.Fatal("数据库迁移失败", err)
		}
		fileRepo = repository.NewFileRepository(database.DB, database.RDB, time.Now)
	case "memory":
		fileRepo = repository.NewMemoryFileRepository(time.Now)
		log.Info("使用内存存储后端，重启后数据不保留")
	default:
		log.Fatalf("未知的存储后端: %s", cfg.Share.Backend)
	}

	storage.InitMinIO(cfg.MinIO)
	contentStore := storage.NewContentStore(cfg.MinIO)

	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 Service (依赖注入)
	fileService := service.NewFileService(fileRepo, contentStore, producer, cfg.Share, time.Now)

	// 5. 启动后台 Kafka 通知消费者
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	go kafka.StartNotificationConsumer(consumerCtx, cfg.Kafka, notify.NewNotifier())

	// 6. 启动后台过期清理任务
	go runCleanupLoop(consumerCtx, fileService, cfg.Cleanup)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	fileHandler := handler.NewFileHandler(fileService)
	apiV1 := r.Group("/api/v1")
	{
		files := apiV1.Group("/files")
		{
			files.POST("", fileHandler.Upload)
			files.POST("/:id/share-link", fileHandler.GenerateShareLink)
			files.POST("/:id/download", fileHandler.Download)
			files.GET("/:id/stats", fileHandler.GetFileStats)
		}

		shares := apiV1.Group("/shares")
		{
			shares.GET("/:slug", fileHandler.GetByShareSlug)
		}

		maintenance := apiV1.Group("/maintenance")
		{
			maintenance.POST("/cleanup", fileHandler.Cleanup)
		}
	}
	// 分享链接的公开落地接口
	r.GET("/download/:slug", fileHandler.ResolveShare)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// runCleanupLoop 按配置的间隔周期性清理过期记录。间隔为 0 时不启动。
func runCleanupLoop(ctx context.Context, svc service.FileService, cfg config.CleanupConfig) {
	if cfg.IntervalMinutes <= 0 {
		log.Info("后台清理任务未启用")
		return
	}

	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Infof("后台清理任务已启动，间隔 %s", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.CleanupExpired(ctx)
		}
	}
}
