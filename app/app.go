package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/burakmert236/courtside/common/cache"
	"github.com/burakmert236/courtside/common/config"
	"github.com/burakmert236/courtside/common/database"
	apperrors "github.com/burakmert236/courtside/common/errors"
	commonevents "github.com/burakmert236/courtside/common/events"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/common/natsjetstream"
	"github.com/burakmert236/courtside/internal/badge"
	"github.com/burakmert236/courtside/internal/events"
	"github.com/burakmert236/courtside/internal/handler"
	"github.com/burakmert236/courtside/internal/repository"
	"github.com/burakmert236/courtside/internal/scheduler"
	"github.com/burakmert236/courtside/internal/service"
	"github.com/burakmert236/courtside/internal/session"
	"github.com/burakmert236/courtside/internal/unread"
)

const serviceName = "courtside"

type App struct {
	cfg             *config.Config
	grpcServer      *grpc.Server
	db              *database.DynamoDBClient
	redisClient     *cache.RedisClient
	natsClient      *natsjetstream.Client
	logger          *logger.Logger
	badgeSink       *badge.RedisSink
	eventPublisher  *events.EventPublisher
	eventSubscriber *events.EventSubscriber
	aggregator      *unread.Aggregator
	sessions        *session.Manager
	scheduler       *scheduler.Scheduler

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, *apperrors.AppError) {
	app := &App{
		cfg:     cfg,
		cleanup: make([]func() error, 0),
	}

	if err := app.initLogger(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init logger")
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init database")
	}

	if err := app.initRedis(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init redis client")
	}

	if err := app.initNATS(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init nats client")
	}

	if err := app.initMessagePublisher(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init messaging publisher")
	}

	if err := app.initGRPC(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init grpc server")
	}

	if err := app.initMessageSubscriber(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init messaging subscriber")
	}

	if err := app.initScheduler(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init scheduler")
	}

	return app, nil
}

func (a *App) initLogger() *apperrors.AppError {
	a.logger = logger.New(logger.Config{
		Level:       a.cfg.Log.Level,
		Format:      a.cfg.Log.Format,
		ServiceName: serviceName,
	})
	a.cleanup = append(a.cleanup, func() error {
		// Sync on a terminal stdout reports EINVAL; nothing to do about it.
		_ = a.logger.Sync()
		return nil
	})
	return nil
}

func (a *App) initDatabase(ctx context.Context) *apperrors.AppError {
	dynamoClient, err := database.NewDynamoDBClient(ctx, a.cfg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create dynamodb client")
	}

	a.db = dynamoClient
	a.logger.Info("DynamoDB client ready", "table", a.cfg.DynamoDB.TableName)
	return nil
}

func (a *App) initRedis() *apperrors.AppError {
	redisClient, err := cache.NewRedisClient(a.cfg.Redis)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to connect to redis")
	}

	a.redisClient = redisClient
	a.badgeSink = badge.NewRedisSink(redisClient.GetClient())
	a.cleanup = append(a.cleanup, redisClient.Close)

	a.logger.Info("Redis client ready", "address", a.cfg.Redis.Address)
	return nil
}

func (a *App) initNATS(ctx context.Context) *apperrors.AppError {
	natsClient, err := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	}, a.logger)
	if err != nil {
		return err
	}

	a.natsClient = natsClient

	if err := natsClient.EnsureStream(ctx, commonevents.ChatEventsStream, commonevents.ChatEventsWildcard); err != nil {
		a.logger.Error("Failed to create stream",
			"error", err,
			"stream", commonevents.ChatEventsStream,
		)
		natsClient.Close()
		return err
	}
	a.logger.Info("Stream ready", "stream", commonevents.ChatEventsStream)

	a.cleanup = append(a.cleanup, natsClient.Close)

	return nil
}

func (a *App) initMessagePublisher() *apperrors.AppError {
	a.eventPublisher = events.NewEventPublisher(natsjetstream.NewPublisher(a.natsClient), a.logger)
	return nil
}

func (a *App) initGRPC() *apperrors.AppError {
	groupRepo := repository.NewGroupRepository(a.db)
	messageRepo := repository.NewMessageRepository(a.db)
	announcementRepo := repository.NewAnnouncementRepository(a.db)
	watermarkRepo := repository.NewWatermarkRepository(a.db)
	tournamentRepo := repository.NewTournamentRepository(a.db)
	bracketRepo := repository.NewBracketRepository(a.db)

	a.aggregator = unread.NewAggregator(
		groupRepo,
		messageRepo,
		announcementRepo,
		watermarkRepo,
		unread.Config{
			BranchTimeout:  a.cfg.Unread.BranchTimeout,
			MaxConcurrency: a.cfg.Unread.MaxConcurrency,
		},
		a.logger,
	)
	a.aggregator.SetNotifier(a.eventPublisher)

	a.sessions = session.NewManager(groupRepo, a.aggregator, a.badgeSink, a.logger)
	a.cleanup = append(a.cleanup, func() error {
		a.sessions.CloseAll()
		return nil
	})

	chatService := service.NewChatService(groupRepo, messageRepo, announcementRepo, a.eventPublisher, a.logger)
	tournamentService := service.NewTournamentService(tournamentRepo, a.logger)
	bracketService := service.NewBracketService(tournamentRepo, bracketRepo, a.logger)
	notificationService := service.NewNotificationService(a.sessions, a.aggregator, a.badgeSink, a.logger)

	a.grpcServer = grpc.NewServer(
		grpc.UnaryInterceptor(a.loggingInterceptor),
	)

	handler.RegisterBracketServer(a.grpcServer, handler.NewBracketHandler(bracketService, a.logger))
	handler.RegisterNotificationServer(a.grpcServer, handler.NewNotificationHandler(notificationService, a.logger))
	handler.RegisterChatServer(a.grpcServer, handler.NewChatHandler(chatService, a.logger))
	handler.RegisterTournamentServer(a.grpcServer, handler.NewTournamentHandler(tournamentService, a.logger))
	// Descriptors are hand-built without .proto files, so reflection can
	// list services but cannot resolve file descriptors for them.
	reflection.Register(a.grpcServer)

	return nil
}

func (a *App) initMessageSubscriber(ctx context.Context) *apperrors.AppError {
	a.eventSubscriber = events.NewEventSubscriber(a.natsClient, a.sessions, a.logger)
	if err := a.eventSubscriber.Start(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeEventSubscribtionError, "failed to start event subscriber")
	}

	a.cleanup = append(a.cleanup, a.eventSubscriber.Stop)
	return nil
}

func (a *App) initScheduler() *apperrors.AppError {
	resyncJob := scheduler.NewResyncJob(a.sessions, a.logger)
	a.scheduler = scheduler.NewScheduler(resyncJob, a.cfg.Unread.ResyncInterval, a.logger)

	a.cleanup = append(a.cleanup, func() error {
		a.scheduler.Stop()
		return nil
	})

	return nil
}

func (a *App) Start() *apperrors.AppError {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.GRPCPort))
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to listen")
	}

	go a.scheduler.Start()
	a.logger.Info("Session resync scheduler is started", "interval", a.cfg.Unread.ResyncInterval)

	go func() {
		a.logger.Info("gRPC server listening", "port", a.cfg.Server.GRPCPort)
		if err := a.grpcServer.Serve(lis); err != nil {
			a.logger.Error("gRPC server stopped serving", "error", err)
		}
	}()

	a.logger.Info("Application started successfully", "environment", a.cfg.Server.Environment)

	return nil
}

// Stop drains RPCs first, then releases resources in reverse init order so
// sessions close before the clients they write through.
func (a *App) Stop() *apperrors.AppError {
	a.logger.Info("Stopping application...")

	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			a.logger.Error("Cleanup error", "error", err)
		}
	}

	a.logger.Info("Application stopped")
	return nil
}

func (a *App) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		a.logger.Warn("RPC failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
		return resp, err
	}
	a.logger.Info("RPC served", "method", info.FullMethod, "duration", time.Since(start))
	return resp, err
}
