package server_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/repository"
	"github.com/joseph-ayodele/lantern/internal/server"
)

func dialBufconn(t *testing.T, e env, engine stubEngine) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, hs := server.NewGRPCServer(server.NewJobsService(e.jobs, e.runner, nil), nil)
	server.UpdateOCRHealth(context.Background(), hs, engine.CheckAvailable, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestJobsService(t *testing.T) {
	engine := stubEngine{}
	e := newEnv(t, engine)
	conn := dialBufconn(t, e, engine)
	client := server.NewJobsClient(conn)
	ctx := context.Background()

	rec, err := e.jobs.Create(ctx, repository.NewJob{Source: constants.SourceCLI, ImagePath: "sheet.jpg"})
	require.NoError(t, err)

	got, err := client.GetJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "queued", got.AsMap()["status"])
	assert.Equal(t, "cli", got.AsMap()["source"])

	res, err := client.ProcessJob(ctx, rec.ID)
	require.NoError(t, err)
	m := res.AsMap()
	assert.Equal(t, "done", m["status"])
	assert.Equal(t, rec.ID, m["job_id"])
	assert.Equal(t, "22", m["fields"].(map[string]any)["route"])

	_, err = client.GetJob(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = client.ProcessJob(ctx, " ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = client.GetJob(ctx, "../etc/passwd")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealthService(t *testing.T) {
	engine := stubEngine{}
	e := newEnv(t, engine)
	hc := healthpb.NewHealthClient(dialBufconn(t, e, engine))
	ctx := context.Background()

	resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = hc.Check(ctx, &healthpb.HealthCheckRequest{Service: server.OCRHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestHealthService_OCRDown(t *testing.T) {
	engine := stubEngine{availErr: assert.AnError}
	e := newEnv(t, engine)
	hc := healthpb.NewHealthClient(dialBufconn(t, e, engine))

	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: server.OCRHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
