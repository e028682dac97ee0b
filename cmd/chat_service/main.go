package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "marketplace_chat_service/cmd/chat_service/docs" // 引入生成的 Swagger 文档
	"marketplace_chat_service/internal/chat/app"
	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/chat/hub"
	"marketplace_chat_service/internal/chat/repository"
	"marketplace_chat_service/internal/chat/router"
	memberapp "marketplace_chat_service/internal/member/app"
	memberdomain "marketplace_chat_service/internal/member/domain"
	memberrepo "marketplace_chat_service/internal/member/repository"
	"marketplace_chat_service/pkg/config"
	"marketplace_chat_service/pkg/database"
	"marketplace_chat_service/pkg/logger"
	testtool "marketplace_chat_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath, config.ChatDefaults())
	if err != nil {
		logger.Log.Fatal("load config", zap.Error(err))
	}
	if config.EnvConfig.ChatServicePort != "" {
		cfg.Port = config.EnvConfig.ChatServicePort
	}
	if cfg.JWT.Secret == "" {
		logger.Log.Fatal("jwt.secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 訊息儲存
	msgRepo, closeStore, err := openMessageStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("open message store", zap.String("driver", string(cfg.Store.Driver)), zap.Error(err))
	}
	defer closeStore()

	// 2. Redis (relay / session)
	var redisClient *redis.Client
	if cfg.Redis.Enabled(cfg.Auth) {
		redisClient, err = database.NewRedisClient(ctx, database.RedisConnection{
			Addr:          cfg.Redis.Addr,
			MasterName:    cfg.Redis.MasterName,
			SentinelAddrs: config.RedisSentinels(),
			DB:            cfg.Redis.RedisDB,
		})
		if err != nil {
			logger.Log.Fatal("connect redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// 3. 會員資料 (postgres)
	var members memberrepo.MemberRepository
	if cfg.Auth.MemberCheck || cfg.Presence.PersistStatus {
		pool, err := database.NewDatabaseConnection(database.Connection{
			ConnectStr:    database.PostgresDSN(cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database),
			RetryCount:    cfg.PostgreSQL.RetryCount,
			RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("connect member database", zap.Error(err))
		}
		defer pool.Close()
		members = memberrepo.NewMemberRepository(pool)
	}

	// nil interface 代表略過該檢查
	var authMembers memberrepo.MemberRepository
	if cfg.Auth.MemberCheck {
		authMembers = members
	}
	var sessions memberrepo.SessionRepository
	if cfg.Auth.SessionCheck {
		sessions = memberrepo.NewSessionRepository(database.NewRedisRepository[memberdomain.MemberSession](redisClient))
	}
	var recorder hub.StatusRecorder
	if cfg.Presence.PersistStatus {
		recorder = memberapp.NewPresenceRecorder(members)
	}
	authGate := memberapp.NewAuthGate([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, authMembers, sessions)

	// 4. 事件
	publisher, err := openEventPublisher(cfg)
	if err != nil {
		logger.Log.Fatal("open event publisher", zap.String("driver", string(cfg.Events.Driver)), zap.Error(err))
	}
	defer publisher.Close()

	relay := repository.NewNopRoomRelay()
	if cfg.Redis.Relay {
		relay = repository.NewRedisRoomRelay(redisClient, uuid.NewString())
	}

	// 5. 初始化 hub 與 UseCases
	rooms := hub.NewBroadcaster()
	presence := hub.NewPresence(hub.NewRegistry(), recorder, cfg.Store.Timeout)
	fanout := app.NewRoomFanout(rooms, relay)
	events := app.NewEventDispatcher(publisher, 4096, cfg.Store.Timeout)
	messages := app.NewMessageUseCase(msgRepo, fanout, events, cfg.Store.Timeout)
	service := app.NewChatService(presence, rooms, fanout, messages,
		domain.Decoder{MaxBodyLength: cfg.Hub.MaxMessageLength},
		hub.ConnOptions{
			SendBuffer: cfg.Hub.SendBuffer,
			WriteWait:  cfg.Hub.WriteWait,
			PingPeriod: cfg.Hub.PingPeriod,
		},
	)

	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		events.Run(ctx)
	}()
	go func() {
		if err := fanout.RunRelay(ctx); err != nil {
			logger.Log.Error("room relay stopped", zap.Error(err))
		}
	}()

	testtool.StartPprof(cfg.PprofAddr)

	// 6. 啟動 Fiber
	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	if logDir := config.EnvConfig.ChatServiceLogPath; logDir != "" {
		file, err := os.OpenFile(fmt.Sprintf("%s/access.log", logDir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logger.Log.Fatal("open access log", zap.Error(err))
		}
		defer file.Close()

		r.Use(fiber_log.New(fiber_log.Config{
			Output: file, // 将日志输出到文件
		}))
	}

	router.RegisterRoutes(r,
		app.NewChatWebsocketHandler(service, cfg.Hub.PongWait, cfg.Hub.MaxFrameBytes),
		app.NewChatHTTPHandler(messages, presence, rooms),
		authGate,
	)

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port), zap.String("store", string(cfg.Store.Driver)))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}

	// 等事件佇列送完再關 publisher
	<-eventsDone
}
