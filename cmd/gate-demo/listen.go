package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gate "github.com/applax-dev/gate-sdk"
	"github.com/applax-dev/gate-sdk/internal/platform/config"
	"github.com/applax-dev/gate-sdk/internal/platform/logging"
	"github.com/applax-dev/gate-sdk/internal/platform/telemetry"
	"github.com/applax-dev/gate-sdk/webhook"
)

// maxWebhookBody caps webhook payload size at 1MB.
const maxWebhookBody = 1 << 20

// runListen serves the webhook listener: signature-verified Gateway events
// on /webhooks/gate, Prometheus metrics on /metrics and a health endpoint.
func runListen(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	secret := cfg.Listen.Webhook.Secret
	if secret == "" {
		return errors.New("webhook secret is required (set GATE_DEMO_LISTEN_WEBHOOK_SECRET)")
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware("gate-demo"))
	router.Use(requestIDMiddleware(logger))
	router.Use(telemetry.Middleware("gate-demo"))

	router.GET("/healthz", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/webhooks/gate", webhookHandler(secret))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Listen.Host, cfg.Listen.Port),
		Handler:      router,
		ReadTimeout:  cfg.Listen.ReadTimeout,
		WriteTimeout: cfg.Listen.WriteTimeout,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("webhook listener started", slog.String("addr", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Listen.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}

// requestIDMiddleware tags every request with an ID, honors the caller's
// correlation header and seeds the context logger the handlers pull out.
// Installed after tracing so telemetry.Middleware can still stamp the
// trace ID on top.
func requestIDMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithContext(c.Request.Context(), logger)
		ctx = logging.WithRequestID(ctx, requestID)

		if corr := c.GetHeader("X-Correlation-ID"); corr != "" {
			ctx = logging.WithCorrelationID(ctx, corr)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// webhookHandler verifies and logs Gateway event deliveries. Bad signatures
// get 401 so the Gateway's redelivery shows up in its dashboard; malformed
// payloads get 400.
func webhookHandler(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logging.FromContext(c.Request.Context())

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reading body"})
			return
		}

		event, err := webhook.ParseVerified(body, c.GetHeader(webhook.SignatureHeader), secret)
		if err != nil {
			if errors.Is(err, webhook.ErrBadSignature) {
				logger.Warn("rejected webhook delivery", slog.Any("error", err))
				c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
				return
			}

			logger.Warn("malformed webhook delivery", slog.Any("error", err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			return
		}

		logger.Info("webhook received",
			slog.String("type", event.Type()),
			slog.String("order_id", event.Data().ID()),
			slog.String("status", event.Data().String("status")),
		)

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// healthHandler reports liveness plus version detail.
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"version":     Version,
		"sdk_version": gate.Version,
	})
}
