package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/lockbay/lockbay-payment-service/internal/app/background"
	"github.com/lockbay/lockbay-payment-service/internal/app/setup"
	"github.com/lockbay/lockbay-payment-service/internal/delivery/httpapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	deps, err := setup.InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}

	useCases := setup.InitializeUseCases(deps)

	webhookHandler := httpapi.NewWebhookHandler(useCases.WebhookUsecase, deps.Logger)
	escrowHandler := httpapi.NewEscrowHandler(useCases.EscrowUsecase, deps.Logger)
	adminHandler := httpapi.NewAdminHandler(
		useCases.StatsUsecase,
		useCases.TransitionUsecase,
		useCases.WalletUsecase,
		useCases.CashoutUsecase,
		useCases.DisputeUsecase,
		useCases.RecoveryUsecase,
		deps.Logger,
	)

	srv := httpapi.NewServer(deps.Config, deps.Logger, webhookHandler, escrowHandler, adminHandler)

	tasks := background.NewBackgroundTasks(deps.Config.SchedulerConfig, useCases.SweeperUsecase, useCases.StatsUsecase, deps.Dispatcher)
	tasks.StartAll()
	defer tasks.Stop()

	// Prometheus scrapes a dedicated listener so the payment API surface
	// stays closed to the monitoring network.
	if deps.Config.MetricsServer.Addr != "" {
		go func() {
			if err := http.ListenAndServe(deps.Config.MetricsServer.Addr, promhttp.Handler()); err != nil {
				log.Printf("metrics listener stopped: %v", err)
			}
		}()
	}

	srv.Run()
}
