package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors" // 引入 CORS 庫
	"github.com/rs/zerolog"

	"nicetalk/chatservice"
	"nicetalk/chatservice/docstore"
	"nicetalk/chatservice/relational"
	"nicetalk/config"
	"nicetalk/database"
	"nicetalk/handlers"
	"nicetalk/login"
	"nicetalk/middleware"
	"nicetalk/models"
	"nicetalk/probe"
	"nicetalk/realtime"
	"nicetalk/remoteconfig"
	"nicetalk/utils"
	"nicetalk/websocket"
)

// schemaRetryInterval 後端無法連線時重試建立資料表與索引的間隔
const schemaRetryInterval = 15 * time.Second

// gateway 是組裝完成的閘道。任一後端在啟動時無法連線都不影響啟動，
// 登入時由探測與備援決定使用哪個後端。
type gateway struct {
	handler  http.Handler
	registry *chatservice.Registry
	login    *login.Manager

	cancel  context.CancelFunc
	hubDone chan struct{}
	closers []func()
	log     zerolog.Logger
}

func newGateway(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gateway, error) {
	ctx, cancel := context.WithCancel(ctx)
	g := &gateway{cancel: cancel, hubDone: make(chan struct{}), log: log}

	// 文件型後端（主要）
	db, err := database.ConnectMongoDB(ctx, cfg.MongoDBURI, cfg.DBName, log)
	if err != nil {
		g.release()
		return nil, err
	}
	g.closers = append(g.closers, func() { database.DisconnectMongoDB(db, log) })
	mongoSchema := database.NewSchema("mongodb", func(ctx context.Context) error {
		return database.EnsureIndexes(ctx, db)
	})

	// 關聯式後端（備援）
	pool, err := database.ConnectPostgres(ctx, cfg.PostgresDSN, log)
	if err != nil {
		g.release()
		return nil, err
	}
	g.closers = append(g.closers, pool.Close)
	pgSchema := database.NewSchema("postgres", func(ctx context.Context) error {
		return database.AutoMigrate(ctx, pool)
	})

	feed, closeFeed, err := newFeed(ctx, cfg, pool, log)
	if err != nil {
		g.release()
		return nil, err
	}
	g.closers = append(g.closers, closeFeed)

	// 後端恢復連線後在背景補建
	go mongoSchema.Prepare(ctx, schemaRetryInterval, log)
	go pgSchema.Prepare(ctx, schemaRetryInterval, log)

	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	mongoStore := docstore.NewMongoStore(db, mongoSchema)
	docService := docstore.New(mongoStore, mongoStore, issuer, log)

	pgStore := relational.NewPostgresStore(pool, pgSchema)
	relService := relational.New(pgStore, pgStore, feed, issuer, log, relational.Options{
		AllowAnonymousSignIn: cfg.AllowAnonymousSignIn,
		Identity:             relational.NewLocalIdentity(cfg.AnonIDPath),
	})

	// 登入前預設使用文件型後端
	g.registry = chatservice.NewRegistry(models.BackendDocStore, docService, relService)

	g.login = login.NewManager(
		remoteconfig.NewFetcher(cfg.RemoteConfigURL, cfg.RemoteConfigTimeout, log),
		probe.NewHTTPProbe(cfg.ProbeURL, cfg.ProbeTimeout, log),
		docService,
		relService,
		log,
	)

	hub := websocket.NewHub(ctx, g.registry, log)
	go func() {
		hub.Run()
		close(g.hubDone)
	}()

	router := mux.NewRouter()
	router.Use(chimw.RequestID, middleware.RequestLogger(log), chimw.Recoverer)

	auth := middleware.JWTMiddleware(issuer, func() models.Backend { return g.registry.Service().Backend() }, log)
	handlers.New(g.registry, g.login, log).Register(router, auth)
	router.Handle("/ws", auth(http.HandlerFunc(hub.HandleConnections))).Methods(http.MethodGet)

	// 設置 CORS 中介軟體
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	g.handler = c.Handler(router)
	return g, nil
}

// newFeed 建立關聯式後端的即時通道。兩端的閘道各自是一個行程，
// 變更必須經過共用的資料庫或 Redis 才能送達對方。
func newFeed(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log zerolog.Logger) (realtime.Feed, func(), error) {
	switch cfg.RealtimeFeed {
	case config.FeedPostgres, "":
		log.Info().Msg("Using PostgreSQL LISTEN/NOTIFY change feed")
		return realtime.NewPostgresFeed(pool, cfg.ChannelPrefix, log), func() {}, nil
	case config.FeedRedis:
		client, err := database.ConnectRedis(ctx, cfg.RedisAddr, log)
		if err != nil {
			return nil, nil, err
		}
		closeClient := func() {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing Redis client")
			}
		}
		return realtime.NewRedisFeed(client, cfg.ChannelPrefix, log), closeClient, nil
	default:
		return nil, nil, fmt.Errorf("unknown REALTIME_FEED %q", cfg.RealtimeFeed)
	}
}

// shutdown 關閉所有 WebSocket 連線、等待訂閱釋放，再關閉後端連線
func (g *gateway) shutdown(ctx context.Context) {
	g.cancel()
	select {
	case <-g.hubDone:
	case <-ctx.Done():
		g.log.Warn().Msg("Timed out waiting for subscriptions to close")
	}
	g.release()
}

func (g *gateway) release() {
	g.cancel()
	for i := len(g.closers) - 1; i >= 0; i-- {
		g.closers[i]()
	}
	g.closers = nil
}
