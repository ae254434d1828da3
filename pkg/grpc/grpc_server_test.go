package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/db"
	"liyu1981.xyz/printwatch-service/pkg/device"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
	"liyu1981.xyz/printwatch-service/pkg/monitor/mocks"
	_ "liyu1981.xyz/printwatch-service/pkg/testing"
)

const bufSize = 1024 * 1024

type warningReader struct{}

func (warningReader) Fetch(ctx context.Context, ip string) device.Snapshot {
	return device.Snapshot{
		Online:    true,
		Condition: device.Condition{Severity: models.SeverityWarning, Text: "Toner Low"},
	}
}

type testEnv struct {
	client *MonitorClient
	server *MonitorServer
	store  *db.Store
}

func startTestServer(t *testing.T, limiter *monitor.RateLimiterStore) *testEnv {
	t.Helper()
	listener := bufconn.Listen(bufSize)

	instance, err := db.Open(db.UseIsolatedMemorySqliteDialector())
	require.NoError(t, err)
	store := db.NewStore(instance)

	m := &monitor.Monitor{
		Store:       store,
		Departments: store,
		Users:       store,
		Reader:      warningReader{},
	}
	m.WithServices(monitor.ServiceOpts{
		Poller: m.GetIPoller(),
		Gate:   m.GetIGate(),
	})

	monitorServer := &MonitorServer{Monitor: m, Inventory: store, RateLimiterStore: limiter}
	server := grpc.NewServer(grpc.UnaryInterceptor(
		monitorServer.CreateRateLimitInterceptor([]string{MethodRefresh}),
	))
	RegisterMonitorServiceServer(server, monitorServer)

	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, s string) (net.Conn, error) {
			return listener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testEnv{client: NewMonitorClient(conn), server: monitorServer, store: store}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRefreshAndGetPrinter(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t, nil)
	ctx := context.Background()

	p := &models.Printer{IPAddress: "172.16.0.10"}
	require.NoError(t, env.store.CreatePrinter(ctx, p))

	resp, err := env.client.Refresh(ctx, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.GetFields()["total"].GetNumberValue())
	assert.Equal(t, 1.0, resp.GetFields()["online"].GetNumberValue())

	results := resp.GetFields()["results"].GetListValue().GetValues()
	require.Len(t, results, 1)
	alert := results[0].GetStructValue().GetFields()["alert"].GetStructValue()
	assert.Equal(t, "notifier-disabled", alert.GetFields()["reason"].GetStringValue())

	printer, err := env.client.GetPrinter(ctx, mustStruct(t, map[string]any{"printer_id": p.ID}))
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.10", printer.GetFields()["ip_address"].GetStringValue())
	assert.Equal(t, "warning", printer.GetFields()["condition_severity"].GetStringValue())
	assert.True(t, printer.GetFields()["online"].GetBoolValue())
}

func TestGetPrinterEdgeCases(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t, nil)
	ctx := context.Background()

	_, err := env.client.GetPrinter(ctx, mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.GetPrinter(ctx, mustStruct(t, map[string]any{"printer_id": "missing"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRefreshPollerError(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t, nil)

	ctrl := gomock.NewController(t)
	poller := mocks.NewMockIPoller(ctrl)
	env.server.Monitor.WithServices(monitor.ServiceOpts{Poller: poller})

	poller.EXPECT().
		PollAll(gomock.Any(), gomock.Eq("laundry")).
		Return(nil, errors.New("list printers: disk I/O error")).
		Times(1)

	_, err := env.client.Refresh(context.Background(), mustStruct(t, map[string]any{"department_id": "laundry"}))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestRefreshRateLimit(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t, monitor.NewRateLimiterStore(0.001, 2))
	ctx := context.Background()

	for i := range 3 {
		_, err := env.client.Refresh(ctx, mustStruct(t, map[string]any{"department_id": "spa"}))
		if i < 2 {
			require.NoError(t, err, "request %d should be allowed", i+1)
		} else {
			require.Equal(t, codes.ResourceExhausted, status.Code(err), "request %d should be rate limited", i+1)
		}
	}

	// other scopes and unlimited methods are unaffected
	_, err := env.client.Refresh(ctx, mustStruct(t, map[string]any{}))
	assert.NoError(t, err)
	_, err = env.client.GetPrinter(ctx, mustStruct(t, map[string]any{"printer_id": "missing"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err := env.client.SetLimiter(ctx, mustStruct(t, map[string]any{"department_id": "spa", "rate": 10.0, "burst": 5.0}))
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["success"].GetBoolValue())

	_, err = env.client.Refresh(ctx, mustStruct(t, map[string]any{"department_id": "spa"}))
	assert.NoError(t, err)
}

func TestSetLimiterEdgeCases(t *testing.T) {
	common.SetTestLoggerNop()
	ctx := context.Background()

	{
		env := startTestServer(t, monitor.NewRateLimiterStore(1, 1))

		_, err := env.client.SetLimiter(ctx, mustStruct(t, map[string]any{"burst": 1.0}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = env.client.SetLimiter(ctx, mustStruct(t, map[string]any{"rate": "fast", "burst": 1.0}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = env.client.SetLimiter(ctx, mustStruct(t, map[string]any{"rate": -1.0, "burst": 1.0}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	}

	{
		env := startTestServer(t, nil)

		resp, err := env.client.SetLimiter(ctx, mustStruct(t, map[string]any{"rate": 1.0, "burst": 1.0}))
		require.NoError(t, err)
		assert.False(t, resp.GetFields()["success"].GetBoolValue())
	}
}

func TestRefreshEmptyScope(t *testing.T) {
	common.SetTestLoggerNop()
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := env.client.Refresh(ctx, mustStruct(t, map[string]any{"department_id": "empty-scope"}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.GetFields()["total"].GetNumberValue())
	assert.Equal(t, "empty-scope", resp.GetFields()["department_id"].GetStringValue())
}
