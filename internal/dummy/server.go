// Package dummy is a stand-in for the service under test: a /sqrt endpoint
// with jittered latency, plus variants that misbehave in one specific way.
package dummy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type ServerConfig struct {
	Port int

	// Latency of the well-behaved endpoint is drawn from [MinDelay, MaxDelay].
	MinDelay time.Duration
	MaxDelay time.Duration
	// SlowDelay is the fixed latency of /sqrt/slow.
	SlowDelay time.Duration
	// FlakyRate is the fraction of /sqrt/flaky calls answered with a 500.
	FlakyRate float64
}

func DefaultConfig() ServerConfig {
	return ServerConfig{
		Port:      8000,
		MinDelay:  100 * time.Millisecond,
		MaxDelay:  150 * time.Millisecond,
		SlowDelay: 250 * time.Millisecond,
		FlakyRate: 0.2,
	}
}

type numberRequest struct {
	Number *int64 `json:"number"`
}

type numberResponse struct {
	Result *float64 `json:"result"`
}

// sqrt is nil where the square root is not a real number, which encodes as
// JSON null.
func sqrt(n int64) *float64 {
	if n < 0 {
		return nil
	}
	v := math.Sqrt(float64(n))
	return &v
}

func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// handler decodes the request, waits delay, and answers with whatever result
// produces.
func handler(delay func() time.Duration, result func(n int64) *float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req numberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Number == nil {
			http.Error(w, `{"detail": "number is required"}`, http.StatusUnprocessableEntity)
			return
		}

		select {
		case <-time.After(delay()):
		case <-r.Context().Done():
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(numberResponse{Result: result(*req.Number)})
	}
}

// Handler returns the mux with every endpoint.
func Handler(cfg ServerConfig) http.Handler {
	mux := http.NewServeMux()
	normal := func() time.Duration { return jitter(cfg.MinDelay, cfg.MaxDelay) }

	// 1. Correct and within the usual latency bounds
	mux.HandleFunc("/sqrt", handler(normal, sqrt))

	// 2. Correct but too slow
	mux.HandleFunc("/sqrt/slow", handler(func() time.Duration { return cfg.SlowDelay }, sqrt))

	// 3. Fast but wrong
	mux.HandleFunc("/sqrt/wrong", handler(normal, func(n int64) *float64 {
		v := sqrt(n)
		if v != nil {
			*v += 0.5
		}
		return v
	}))

	// 4. Never a result
	mux.HandleFunc("/sqrt/null", handler(normal, func(int64) *float64 { return nil }))

	// 5. Random server errors
	flaky := handler(normal, sqrt)
	mux.HandleFunc("/sqrt/flaky", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float64() < cfg.FlakyRate {
			http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			return
		}
		flaky(w, r)
	})

	return mux
}

// Start serves until ctx is done.
func Start(ctx context.Context, cfg ServerConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := fmt.Sprintf(":%d", cfg.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("dummy service listening",
		zap.String("addr", addr),
		zap.Strings("endpoints", []string{"/sqrt", "/sqrt/slow", "/sqrt/wrong", "/sqrt/null", "/sqrt/flaky"}))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
