package grpc

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/db"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
	wftesting "liyu1981.xyz/wfdb-catalog/pkg/testing"
)

const bufSize = 1024 * 1024

func startTestServer(t *testing.T, limiter *common.RateLimiterStore) (healthpb.HealthClient, *CatalogServer) {
	listener := bufconn.Listen(bufSize)

	dbInstance, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbInstance.Close() })

	catalogServer := NewCatalogServer(catalog.New(dbInstance, 0), limiter)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		CreateLoggingInterceptor(),
		catalogServer.CreateRateLimitInterceptor([]proto.Message{&healthpb.HealthCheckRequest{}}),
	))
	catalogServer.Register(server)

	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, s string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return healthpb.NewHealthClient(conn), catalogServer
}

func check(t *testing.T, client healthpb.HealthClient, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

func TestHealthBeforeRefresh(t *testing.T) {
	common.SetTestLoggerNop()
	client, _ := startTestServer(t, nil)

	st, err := check(t, client, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	st, err = check(t, client, ServiceName(models.DatasetWaveforms))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_UNKNOWN, st)
}

func TestHealthAfterRefresh(t *testing.T) {
	common.SetTestLoggerNop()
	client, server := startTestServer(t, nil)

	require.NoError(t, server.Catalog.Schema.CreateSchema(context.Background(), models.DatasetWaveforms))
	require.NoError(t, server.Refresh(context.Background()))

	st, err := check(t, client, "wfcatalog.waveforms")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	st, err = check(t, client, "wfcatalog.echo")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st, "echo tables were never created")

	_, err = check(t, client, "wfcatalog.notes")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRefreshWithDatabaseGone(t *testing.T) {
	common.SetTestLoggerNop()
	client, server := startTestServer(t, nil)

	require.NoError(t, server.Catalog.Db.Close())
	assert.Error(t, server.Refresh(context.Background()))

	st, err := check(t, client, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
}

func TestRateLimitInterceptor(t *testing.T) {
	common.SetTestLoggerNop()
	client, _ := startTestServer(t, common.NewRateLimiterStore(1, 2)) // 1 req/sec, burst 2

	for range 2 {
		_, err := check(t, client, "")
		require.NoError(t, err)
	}
	_, err := check(t, client, "")
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// each service has its own budget
	_, err = check(t, client, ServiceName(models.DatasetECG))
	assert.NoError(t, err)
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	common.SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	client, _ := startTestServer(t, nil)
	_, err := check(t, client, "")
	require.NoError(t, err)

	var found bool
	for _, l := range wftesting.ParseLogs(&buf) {
		if l["msg"] != "Handled request" {
			continue
		}
		found = true
		assert.Equal(t, "grpc_server", l["logger"])
		assert.Equal(t, "/grpc.health.v1.Health/Check", l["method"])
		assert.Equal(t, "OK", l["code"])
	}
	assert.True(t, found)
}
