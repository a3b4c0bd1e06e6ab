package service

import (
	"context"
	"database/sql"
	"fmt"

	"talktail-bridge/internal/bridge"
	"talktail-bridge/internal/config"
	"talktail-bridge/internal/database"
	"talktail-bridge/internal/forwarder"
	"talktail-bridge/internal/redisx"
	"talktail-bridge/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// BridgeService 遥测桥接服务
type BridgeService struct {
	config    *config.Config
	logger    *zap.Logger
	db        *sql.DB
	redis     *redis.Client
	bridge    *bridge.Bridge
	forwarder *forwarder.Forwarder
}

// NewBridgeService 创建遥测桥接服务
func NewBridgeService(cfg *config.Config, logger *zap.Logger) (*BridgeService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化Redis
	redisClient := redisx.NewRedisClient(&cfg.Redis)
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 创建传输层与桥接器
	transport := bridge.NewPahoTransport(&cfg.MQTT)
	b := bridge.New(transport, cfg.MQTT.QoS, logger)

	// 创建Repository与转发器
	hubRepo := repository.NewHubRepository(db, logger)
	kv := forwarder.NewRedisKVStore(redisClient)
	fwd := forwarder.New(cfg, redisClient, kv, hubRepo, logger)

	return &BridgeService{
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		bridge:    b,
		forwarder: fwd,
	}, nil
}

// Bridge 暴露桥接器，供上层注册额外的事件处理函数
func (s *BridgeService) Bridge() *bridge.Bridge {
	return s.bridge
}

// Start 启动服务：挂接转发器、建立代理连接并订阅配置的 Hub 列表
func (s *BridgeService) Start(ctx context.Context) error {
	s.logger.Info("Starting bridge service components")

	// 先挂接转发器，再建立连接，避免漏掉早到的消息
	s.forwarder.Start(s.bridge)

	if err := s.bridge.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect bridge: %w", err)
	}

	for _, hubID := range s.config.Bridge.HubIDs {
		if err := s.bridge.SubscribeHub(ctx, hubID); err != nil {
			// 单个 Hub 订阅失败不影响其它 Hub
			s.logger.Error("Failed to subscribe hub",
				zap.String("hub_id", hubID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Bridge service started successfully",
		zap.Strings("hubs", s.bridge.SubscribedHubs()),
	)
	return nil
}

// Stop 停止服务
func (s *BridgeService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping bridge service")

	// 停止转发器
	if s.forwarder != nil {
		s.forwarder.Stop()
	}

	// 断开代理连接
	if s.bridge != nil {
		s.bridge.Close()
	}

	// 关闭Redis
	if s.redis != nil {
		redisx.Close(s.redis)
	}

	// 关闭数据库
	if s.db != nil {
		database.Close(s.db)
	}

	s.logger.Info("Bridge service stopped")
	return nil
}
