package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitting-room-server/modules/common/config"
	"fitting-room-server/modules/common/diagnostics"
	"fitting-room-server/modules/common/redis"
	"fitting-room-server/modules/common/vertexai"
	"fitting-room-server/modules/session"
	"fitting-room-server/modules/tryon"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "fitting-room",
	})
}

// 서버 메트릭 조회 엔드포인트
func getMetrics(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := manager.Metrics()
		sessions := manager.Sessions()

		currentClients := 0
		for _, s := range sessions {
			currentClients += s.ClientCount
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"server": map[string]interface{}{
				"uptime":              time.Since(metrics.StartTime).String(),
				"startTime":           metrics.StartTime,
				"totalSessions":       metrics.TotalSessions,
				"activeSessions":      metrics.ActiveSessions,
				"totalConnections":    metrics.TotalConnections,
				"currentClients":      currentClients,
				"generationAttempts":  metrics.GenerationAttempts,
				"generationSuccesses": metrics.GenerationSuccesses,
				"generationFailures":  metrics.GenerationFailures,
			},
			"sessions": sessions,
		})
	}
}

// 모든 세션 강제 정리 (관리자용)
func forceCleanupSessions(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inactive := manager.CleanupInactive()
		expired := manager.CleanupExpired()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "Cleanup completed",
			"inactive": inactive,
			"expired":  expired,
		})
	}
}

// newRecorder - Redis-backed diagnostics when configured, log-only otherwise
func newRecorder(cfg *config.Config) diagnostics.Recorder {
	if !cfg.RedisEnabled() {
		return diagnostics.NewLogRecorder()
	}

	rdb, err := redis.Connect(cfg)
	if err != nil {
		log.Printf("⚠️  Redis unavailable, diagnostics will only be logged: %v", err)
		return diagnostics.NewLogRecorder()
	}
	return diagnostics.NewRedisRecorder(rdb, cfg.DiagnosticsKey, cfg.DiagnosticsMax)
}

// newGenerator - generation backend selected by GENERATION_BACKEND
func newGenerator(ctx context.Context, cfg *config.Config) (tryon.Generator, error) {
	if cfg.Backend == config.BackendVertex {
		client, err := vertexai.NewVertexAIClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return tryon.NewVertexGenerator(client, cfg.VertexModel), nil
	}

	client, err := tryon.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	return tryon.NewGeminiGenerator(client, cfg.GeminiModel), nil
}

// newRouter - all routes behind the CORS middleware
func newRouter(manager *session.Manager, handler *tryon.Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/metrics", getMetrics(manager)).Methods("GET")
	r.HandleFunc("/admin/cleanup", forceCleanupSessions(manager)).Methods("POST")
	handler.RegisterRoutes(r)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize %s generator: %v", cfg.Backend, err)
	}
	recorder := newRecorder(cfg)

	// 세션 매니저 + 정리 루틴
	manager := session.NewManager(cfg.SessionIdleTTL, cfg.SessionMaxAge)
	manager.StartCleanupRoutine(ctx.Done())

	service := tryon.NewService(generator, recorder, manager)
	handler := tryon.NewHandler(service, manager, recorder, cfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(manager, handler),
	}

	log.Printf("🚀 Fitting Room Server starting on port %s", cfg.Port)
	log.Printf("🖼️  Page: http://localhost:%s/", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)
	log.Printf("🧹 Admin cleanup: http://localhost:%s/admin/cleanup", cfg.Port)

	go func() {
		<-ctx.Done()
		log.Printf("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	// 서버 시작
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}
