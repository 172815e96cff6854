// Package app wires the album service together.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/config"
	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	albumEvents "github.com/Kilat-Pet-Delivery/service-album/internal/events"
	"github.com/Kilat-Pet-Delivery/service-album/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-album/internal/httpclient"
	"github.com/Kilat-Pet-Delivery/service-album/internal/kafka"
	"github.com/Kilat-Pet-Delivery/service-album/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-album/internal/middleware"
	"github.com/Kilat-Pet-Delivery/service-album/internal/provider/flickr"
	"github.com/Kilat-Pet-Delivery/service-album/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceName identifies the service in logs, health checks and events.
const ServiceName = "service-album"

// App holds the running service components.
type App struct {
	Router   *gin.Engine
	Sync     *application.PhotoSyncService
	Broker   *eventbus.Broker
	Metrics  *metrics.Metrics
	Loop     *application.StoreLoop
	Consumer *albumEvents.RefreshCommandConsumer

	producer   *kafka.Producer
	publisher  *eventbus.KafkaPublisher
	httpClient *httpclient.Client
	logger     *zap.Logger
}

type options struct {
	transport http.RoundTripper
	intN      func(int) int
}

// Option customises New.
type Option func(*options)

// WithTransport routes all outbound HTTP through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithRandom fixes the provider page picker.
func WithRandom(fn func(int) int) Option {
	return func(o *options) { o.intN = fn }
}

// New builds every component on top of an open, migrated database.
func New(cfg *config.ServiceConfig, db *gorm.DB, log *zap.Logger, opts ...Option) *App {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := metrics.New(prometheus.NewRegistry())

	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout: cfg.Provider.Timeout,
		UserAgent:      cfg.Provider.UserAgent,
		Transport:      o.transport,
	})
	hc.SetAfterResponseHook(func(req *http.Request, resp *http.Response, elapsed time.Duration, _ error) {
		kind := "image"
		if strings.HasPrefix(req.URL.Path, "/services/rest") {
			kind = "search"
		}
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.Upstream(kind, status, elapsed)
	})

	var flickrOpts []flickr.Option
	if o.intN != nil {
		flickrOpts = append(flickrOpts, flickr.WithRandom(o.intN))
	}
	provider := flickr.NewClient(hc, flickr.Config{
		BaseURL:        cfg.Provider.BaseURL,
		APIKey:         cfg.Provider.APIKey,
		PerPage:        cfg.Provider.PerPage,
		HalfWidth:      cfg.Provider.BBoxHalfWidth,
		HalfHeight:     cfg.Provider.BBoxHalfHeight,
		RequestsPerSec: cfg.Provider.RequestsPerSecond,
		Burst:          cfg.Provider.Burst,
		MaxImageBytes:  cfg.Provider.MaxImageBytes,
	}, log, flickrOpts...)

	broker := eventbus.NewBroker(log)
	publishers := eventbus.MultiPublisher{broker}
	var (
		producer       *kafka.Producer
		kafkaPublisher *eventbus.KafkaPublisher
	)
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		kafkaPublisher = eventbus.NewKafkaPublisher(producer, eventbus.KafkaPublisherConfig{
			Topic:        cfg.Kafka.EventsTopic,
			QueueSize:    cfg.Kafka.PublishQueueSize,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, log)
		publishers = append(publishers, kafkaPublisher)
	}
	emitter := eventbus.NewEmitter(publishers, log)

	locationRepo := repository.NewGormLocationRepository(db)
	photoRepo := repository.NewGormPhotoRepository(db)
	viewportRepo := repository.NewGormViewportRepository(db)

	loop := application.NewStoreLoop(cfg.Sync.LoopQueueSize, log)
	cache := application.NewPhotoCache(cfg.Cache.ImageTTL, m)

	syncService := application.NewPhotoSyncService(
		locationRepo,
		photoRepo,
		provider,
		provider,
		loop,
		emitter,
		cache,
		m,
		log.Named("sync"),
		application.SyncConfig{
			Workers:         cfg.Sync.Workers,
			DownloadTimeout: cfg.Sync.DownloadTimeout,
		},
	)
	locationService := application.NewLocationService(locationRepo, photoRepo, syncService, loop, emitter, cache, log)
	photoService := application.NewPhotoService(locationRepo, photoRepo, syncService, loop, emitter, cache, cfg.Cache.MaxThumbnailWidth, log)
	viewportService := application.NewViewportService(viewportRepo, loop, emitter, log)

	var consumer *albumEvents.RefreshCommandConsumer
	if cfg.Kafka.Enabled() {
		consumer = albumEvents.NewRefreshCommandConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.GroupPrefix+"album-service",
			cfg.Kafka.CommandsTopic,
			syncService,
			log,
		)
	}

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.PrometheusMiddleware(m))

	handler.NewHealthHandler(db, ServiceName, m.Registry()).RegisterRoutes(router)
	handler.NewLocationHandler(locationService).RegisterRoutes(&router.RouterGroup)
	handler.NewPhotoHandler(photoService).RegisterRoutes(&router.RouterGroup)
	handler.NewRefreshHandler(syncService).RegisterRoutes(&router.RouterGroup)
	handler.NewViewportHandler(viewportService).RegisterRoutes(&router.RouterGroup)
	handler.NewEventsHandler(broker).RegisterRoutes(&router.RouterGroup)

	return &App{
		Router:     router,
		Sync:       syncService,
		Broker:     broker,
		Metrics:    m,
		Loop:       loop,
		Consumer:   consumer,
		producer:   producer,
		publisher:  kafkaPublisher,
		httpClient: hc,
		logger:     log,
	}
}

// StartConsumer runs the refresh command consumer until ctx ends. It is a no-op when
// Kafka is disabled.
func (a *App) StartConsumer(ctx context.Context) {
	if a.Consumer == nil {
		return
	}
	go func() {
		a.logger.Info("starting refresh command consumer")
		if err := a.Consumer.Start(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("refresh command consumer error", zap.Error(err))
		}
	}()
}

// Close stops refreshes, drains the store loop and releases connections.
func (a *App) Close() {
	a.Sync.Close()
	a.Loop.Stop()
	a.Broker.Close()

	if a.Consumer != nil {
		if err := a.Consumer.Close(); err != nil {
			a.logger.Warn("failed to close consumer", zap.Error(err))
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close producer", zap.Error(err))
		}
	}
	a.httpClient.Close()
}
