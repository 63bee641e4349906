package setup

import (
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/usecase"
)

type UseCases struct {
	SettlementUsecase usecase.SettlementUsecase
	WebhookUsecase    usecase.WebhookUsecase
	TransitionUsecase usecase.TransitionUsecase
	WalletUsecase     usecase.WalletUsecase
	CashoutUsecase    usecase.CashoutUsecase
	DisputeUsecase    usecase.DisputeUsecase
	ExchangeUsecase   usecase.ExchangeUsecase
	EscrowUsecase     usecase.EscrowUsecase
	StatsUsecase      usecase.StatsUsecase
	RecoveryUsecase   usecase.RecoveryUsecase
	SweeperUsecase    usecase.SweeperUsecase
}

func InitializeUseCases(deps *Dependencies) *UseCases {
	repos := deps.Repositories

	settlementUsecase := usecase.NewDefaultSettlementUsecase(repos.Store, deps.Logger)

	webhookUsecase := usecase.NewDefaultWebhookUsecase(
		deps.Providers,
		deps.Locker,
		repos.Store,
		repos.EscrowRepo,
		settlementUsecase,
		deps.Publisher,
		deps.Dispatcher,
		deps.Metrics,
		deps.Logger,
	)

	transitionUsecase := usecase.NewDefaultTransitionUsecase(
		repos.TransactionRepo,
		repos.EscrowRepo,
		repos.CashoutRepo,
		repos.ExchangeRepo,
		repos.AuditRepo,
		deps.Metrics,
		deps.Logger,
	)

	walletUsecase := usecase.NewDefaultWalletUsecase(repos.WalletRepo, repos.Store, deps.Logger)
	cashoutUsecase := usecase.NewDefaultCashoutUsecase(repos.CashoutRepo, repos.OTPRepo, repos.Store, deps.Logger)
	disputeUsecase := usecase.NewDefaultDisputeUsecase(repos.DisputeRepo, settlementUsecase, repos.Store, deps.Logger)
	exchangeUsecase := usecase.NewDefaultExchangeUsecase(repos.ExchangeRepo, repos.Store, deps.Logger)
	escrowUsecase := usecase.NewDefaultEscrowUsecase(repos.EscrowRepo, deps.Logger)

	statsTTL := time.Duration(deps.Config.StatsConfig.CacheTTLSeconds) * time.Second
	statsUsecase := usecase.NewDefaultStatsUsecase(repos.StatsRepo, statsTTL, deps.Logger)

	recoveryUsecase := usecase.NewDefaultRecoveryUsecase(repos.EscrowRepo, repos.Store, settlementUsecase, deps.Logger)

	sweeperUsecase := usecase.NewDefaultSweeperUsecase(
		repos.EscrowRepo,
		repos.ExchangeRepo,
		repos.CashoutRepo,
		repos.DeliveryRepo,
		repos.CleanupRepo,
		settlementUsecase,
		exchangeUsecase,
		deps.Publisher,
		deps.Metrics,
		nil,
		deps.Logger,
	)

	return &UseCases{
		SettlementUsecase: settlementUsecase,
		WebhookUsecase:    webhookUsecase,
		TransitionUsecase: transitionUsecase,
		WalletUsecase:     walletUsecase,
		CashoutUsecase:    cashoutUsecase,
		DisputeUsecase:    disputeUsecase,
		ExchangeUsecase:   exchangeUsecase,
		EscrowUsecase:     escrowUsecase,
		StatsUsecase:      statsUsecase,
		RecoveryUsecase:   recoveryUsecase,
		SweeperUsecase:    sweeperUsecase,
	}
}
