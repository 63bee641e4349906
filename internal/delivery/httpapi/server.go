package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lockbay/lockbay-payment-service/internal/config"
)

const adminActorKey = "admin_actor"

// Server hosts the inbound API: provider webhooks, the platform escrow
// intake and the admin surface. Run blocks until SIGINT/SIGTERM and drains
// in-flight requests before returning.
type Server struct {
	cfg        *config.PaymentConfig
	log        *slog.Logger
	router     *gin.Engine
	httpServer *http.Server

	webhooks *WebhookHandler
	escrows  *EscrowHandler
	admin    *AdminHandler
	health   *HealthHandler
}

func NewServer(
	cfg *config.PaymentConfig,
	log *slog.Logger,
	webhooks *WebhookHandler,
	escrows *EscrowHandler,
	admin *AdminHandler,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		log:      log,
		router:   gin.New(),
		webhooks: webhooks,
		escrows:  escrows,
		admin:    admin,
		health:   NewHealthHandler(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())

	s.router.GET("/healthz", s.health.Health)

	// Providers differ on verb and on whether the reference rides in the
	// URL, so every combination lands on the same handler.
	s.router.GET("/webhooks/:provider", s.webhooks.Handle)
	s.router.POST("/webhooks/:provider", s.webhooks.Handle)
	s.router.GET("/webhooks/:provider/:reference_id", s.webhooks.Handle)
	s.router.POST("/webhooks/:provider/:reference_id", s.webhooks.Handle)

	platform := s.router.Group("/platform")
	{
		platform.POST("/escrows", s.escrows.Create)
		platform.GET("/escrows/:id", s.escrows.Get)
	}

	admin := s.router.Group("/admin", RequireAdminActor())
	{
		admin.GET("/stats", s.admin.GetStats)
		admin.POST("/transactions/:id/status", s.admin.UpdateTransactionStatus)
		admin.POST("/escrows/:id/status", s.admin.UpdateEscrowStatus)
		admin.POST("/cashouts/:id/status", s.admin.UpdateCashoutStatus)
		admin.POST("/cashouts/:id/approve", s.admin.ApproveCashout)
		admin.POST("/exchange-orders/:id/status", s.admin.UpdateExchangeOrderStatus)
		admin.POST("/wallets/:user_id/adjust", s.admin.AdjustWallet)
		admin.POST("/disputes/:id/resolve", s.admin.ResolveDispute)
		admin.GET("/recovery/escrows", s.admin.ListOrphanedEscrows)
		admin.POST("/recovery/escrows", s.admin.RecoverOrphanedEscrows)
	}
}

// RequireAdminActor rejects admin calls that do not identify the operator.
// The header value becomes the actor on audit rows, so it is mandatory even
// for reads.
func RequireAdminActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Admin-ID")
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "X-Admin-ID header is required",
			})
			return
		}
		c.Set(adminActorKey, actor)
		c.Next()
	}
}

func (s *Server) Run() {
	s.httpServer = &http.Server{
		Addr:         s.cfg.HTTPServer.Host + ":" + s.cfg.HTTPServer.Port,
		Handler:      s.router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info("http server starting", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stopChan
	s.log.Info("shutdown signal received, draining requests")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("http server forced to shut down", "error", err)
		return
	}
	s.log.Info("http server stopped")
}
