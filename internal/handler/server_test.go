package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"quick_chat/internal/config"
	"quick_chat/internal/domain"
	"quick_chat/internal/handler"
	"quick_chat/internal/metrics"
	"quick_chat/internal/middleware"
	"quick_chat/internal/presence"
	"quick_chat/internal/repository"
	"quick_chat/internal/service"
	"quick_chat/pkg/logger"
)

type testServer struct {
	*httptest.Server
	registry *presence.Registry
	services *service.Services
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{CORSOrigins: []string{"*"}},
		Storage:     config.StorageConfig{Driver: config.StorageDriverMemory},
		JWT:         config.JWTConfig{AccessSecret: "handler-secret", AccessTTL: time.Hour, Issuer: "quick-chat-test"},
		Chat:        config.ChatConfig{DeleteWindow: domain.DefaultDeleteWindow, DefaultPageSize: 50, MaxPageSize: 100},
		Presence: config.PresenceConfig{
			Shards:          8,
			PushTimeout:     time.Second,
			SendBuffer:      16,
			NotifyBuffer:    64,
			ObserverTimeout: time.Second,
		},
		WebSocket: config.WebSocketConfig{
			PongWait:       10 * time.Second,
			MaxMessageSize: 64 * 1024,
			HandshakeRPS:   100,
			HandshakeBurst: 100,
		},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	clk := clock.New()
	m := metrics.New()
	registry := presence.NewRegistry(cfg.Presence.Shards, cfg.Presence.NotifyBuffer)
	repos := repository.NewMemoryRepositories(nil, clk, cfg, log)
	services := service.NewServices(repos, registry, m, clk, cfg, log)

	handlers := handler.NewHandlers(services, registry, m, cfg, log)
	router := handler.NewRouter(handlers,
		middleware.NewAuthMiddleware(services.Auth, log),
		middleware.NewRateLimitMiddleware(services.RateLimit, log),
		cfg, log)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		registry.CloseAll()
		srv.Close()
	})
	return &testServer{Server: srv, registry: registry, services: services}
}

// register creates a user and returns its id and access token.
func (s *testServer) register(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	resp, err := s.services.Auth.Register(context.Background(), email, "password123", strings.Split(email, "@")[0], "")
	require.NoError(t, err)
	return resp.User.ID, resp.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *testServer) dial(t *testing.T, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func (s *testServer) waitOnline(t *testing.T, p uuid.UUID) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := s.registry.Lookup(p)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
}

type wireEvent struct {
	Type domain.EventType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// readUntil reads frames until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want domain.EventType) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var evt wireEvent
		require.NoError(t, conn.ReadJSON(&evt))
		if evt.Type == want {
			return evt
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, typ domain.EventType, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(domain.InboundEvent{Type: typ, Data: raw}))
}
