//go:build integration

package main_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/app"
	"github.com/Kilat-Pet-Delivery/service-album/internal/config"
	"github.com/Kilat-Pet-Delivery/service-album/internal/database"
	"github.com/Kilat-Pet-Delivery/service-album/internal/kafka"
	"github.com/Kilat-Pet-Delivery/service-album/internal/repository"
	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	providerURL   = "https://flickr.test"
	eventsTopic   = "album.events"
	commandsTopic = "album.commands"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	DBConfig     config.DatabaseConfig
	KafkaBrokers []string
	Cleanup      func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the SQL migrations
// and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL container with log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_album",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbCfg := config.DatabaseConfig{
		Driver:         "postgres",
		Host:           pgHost,
		Port:           pgPort.Port(),
		User:           "test",
		Password:       "test",
		DBName:         "test_album",
		SSLMode:        "disable",
		MigrationsPath: "migrations",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dbCfg.DSN()), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.Prepare(db, dbCfg, "production", zap.NewNop()))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, eventsTopic, commandsTopic)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		DBConfig:     dbCfg,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupAlbumApp wires the full service on the test infrastructure, with the photo
// provider stubbed to return n photos.
func setupAlbumApp(t *testing.T, infra *testInfra, n int) *app.App {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	cfg := &config.ServiceConfig{
		AppEnv:   "test",
		Database: infra.DBConfig,
		Kafka: config.KafkaConfig{
			Brokers:       infra.KafkaBrokers,
			GroupPrefix:   fmt.Sprintf("test-%s-", uuid.New().String()[:8]),
			EventsTopic:   eventsTopic,
			CommandsTopic: commandsTopic,
		},
		Provider: config.ProviderConfig{
			BaseURL:        providerURL,
			APIKey:         "test-key",
			PerPage:        21,
			BBoxHalfWidth:  1,
			BBoxHalfHeight: 1,
			Timeout:        5 * time.Second,
			MaxImageBytes:  1 << 20,
		},
		Sync:  config.SyncConfig{Workers: 4, LoopQueueSize: 64, DownloadTimeout: 5 * time.Second},
		Cache: config.CacheConfig{ImageTTL: time.Minute, MaxThumbnailWidth: 256},
	}

	return app.New(cfg, infra.DB, logger, app.WithTransport(stubProvider(n)))
}

// stubProvider answers searches with n photos and serves every image as a small PNG.
func stubProvider(n int) *httpmock.MockTransport {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":"%d","url_m":"https://img.test/%d.png"}`, i, i)
	}
	body := `{"stat":"ok","photos":{"page":1,"pages":1,"perpage":21,"photo":[` + strings.Join(items, ",") + `]}}`

	img := image.NewRGBA(image.Rect(0, 0, 24, 12))
	img.Set(3, 3, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, providerURL+"/services/rest/", httpmock.NewStringResponder(http.StatusOK, body))
	transport.RegisterRegexpResponder(http.MethodGet, regexp.MustCompile(`^https://img\.test/`),
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(http.StatusOK, buf.Bytes())
			resp.Header.Set("Content-Type", "image/png")
			return resp, nil
		})
	return transport
}

// waitForHydratedPhotos polls the photos table until the location has want hydrated photos.
func waitForHydratedPhotos(t *testing.T, db *gorm.DB, locationID uuid.UUID, want int64, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		var count int64
		err := db.Model(&repository.PhotoModel{}).
			Where("location_id = ? AND data IS NOT NULL", locationID).
			Count(&count).Error
		return err == nil && count == want
	}, timeout, 200*time.Millisecond, "location %s did not reach %d hydrated photos", locationID, want)
}

// publishTestEvent publishes a CloudEvent to a Kafka topic.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	producer := kafka.NewProducer(brokers, zap.NewNop())
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, producer.PublishEvent(ctx, topic, uuid.New().String(), ce))
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
