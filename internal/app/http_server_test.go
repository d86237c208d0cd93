package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/restbucks/internal/health"
	"github.com/vladislavdragonenkov/restbucks/internal/version"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err, "GET %s", url)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// startTestMetricsServer поднимает сервер на свободном порту и ждёт, пока он начнёт отвечать.
func startTestMetricsServer(t *testing.T, healthHandler *healthcheck.Handler) (string, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	port := findFreePort(t)
	srv := startMetricsServer(ctx, fmt.Sprintf(":%d", port), log.WithField("test", t.Name()), healthHandler)
	require.NotNil(t, srv)

	base := fmt.Sprintf("http://localhost:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livez")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	return base, cancel
}

func TestStartMetricsServer_HealthyStorage(t *testing.T) {
	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", stubPinger{}, time.Second))
	base, _ := startTestMetricsServer(t, healthHandler)

	code, body := getBody(t, base+"/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "go_goroutines")

	code, body = getBody(t, base+"/healthz")
	require.Equal(t, http.StatusOK, code)
	var resp healthcheck.Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Equal(t, healthcheck.StatusHealthy, resp.Status)
	require.Equal(t, version.GetVersion(), resp.Version)
	require.Equal(t, healthcheck.StatusHealthy, resp.Checks["storage"].Status)

	code, body = getBody(t, base+"/readyz")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ready", body)

	code, body = getBody(t, base+"/livez")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body)
}

func TestStartMetricsServer_UnreachableStorageFailsReadiness(t *testing.T) {
	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", stubPinger{err: errors.New("dial tcp: connection refused")}, time.Second))
	base, _ := startTestMetricsServer(t, healthHandler)

	code, body := getBody(t, base+"/readyz")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "not ready", body)

	code, body = getBody(t, base+"/healthz")
	require.Equal(t, http.StatusServiceUnavailable, code)
	var resp healthcheck.Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Equal(t, healthcheck.StatusUnhealthy, resp.Status)
	require.Contains(t, resp.Checks["storage"].Message, "connection refused")

	// liveness не зависит от хранилища
	code, _ = getBody(t, base+"/livez")
	require.Equal(t, http.StatusOK, code)
}

func TestStartMetricsServer_StopsOnCancel(t *testing.T) {
	base, cancel := startTestMetricsServer(t, healthcheck.NewHandler(version.GetVersion()))

	cancel()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livez")
		if err != nil {
			return true
		}
		resp.Body.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}

func TestStartMetricsServer_AddrInUse(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := fmt.Sprintf(":%d", listener.Addr().(*net.TCPAddr).Port)
	srv := startMetricsServer(ctx, addr, log.WithField("test", "http-in-use"), healthcheck.NewHandler(version.GetVersion()))
	require.NotNil(t, srv, "server is returned even if it cannot bind")
}

func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
