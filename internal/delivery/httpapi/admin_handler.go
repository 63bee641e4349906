package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/usecase"
	"github.com/shopspring/decimal"
)

// AdminHandler exposes the operator surface: the stats snapshot, forced
// status transitions, manual wallet adjustments, cashout approval, dispute
// resolution and orphaned-escrow recovery. Every mutating route requires the
// X-Admin-ID header; the value becomes the audit actor.
type AdminHandler struct {
	stats       usecase.StatsUsecase
	transitions usecase.TransitionUsecase
	wallets     usecase.WalletUsecase
	cashouts    usecase.CashoutUsecase
	disputes    usecase.DisputeUsecase
	recovery    usecase.RecoveryUsecase
	log         *slog.Logger
}

func NewAdminHandler(
	stats usecase.StatsUsecase,
	transitions usecase.TransitionUsecase,
	wallets usecase.WalletUsecase,
	cashouts usecase.CashoutUsecase,
	disputes usecase.DisputeUsecase,
	recovery usecase.RecoveryUsecase,
	log *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		stats:       stats,
		transitions: transitions,
		wallets:     wallets,
		cashouts:    cashouts,
		disputes:    disputes,
		recovery:    recovery,
		log:         log,
	}
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context())
	if err != nil {
		h.log.Error("admin stats unavailable", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "failed to collect stats",
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type statusChangeRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
	Force     bool   `json:"force"`
}

func (h *AdminHandler) UpdateTransactionStatus(c *gin.Context) {
	req, ok := bindStatusChange(c)
	if !ok {
		return
	}
	err := h.transitions.UpdateTransactionStatus(c.Request.Context(),
		c.Param("id"), domain.TransactionStatus(req.NewStatus), adminActor(c), req.Force)
	h.respondStatusChange(c, err)
}

func (h *AdminHandler) UpdateEscrowStatus(c *gin.Context) {
	req, ok := bindStatusChange(c)
	if !ok {
		return
	}
	err := h.transitions.UpdateEscrowStatus(c.Request.Context(),
		c.Param("id"), domain.EscrowStatus(req.NewStatus), adminActor(c), req.Force)
	h.respondStatusChange(c, err)
}

func (h *AdminHandler) UpdateCashoutStatus(c *gin.Context) {
	req, ok := bindStatusChange(c)
	if !ok {
		return
	}
	err := h.transitions.UpdateCashoutStatus(c.Request.Context(),
		c.Param("id"), domain.CashoutStatus(req.NewStatus), adminActor(c), req.Force)
	h.respondStatusChange(c, err)
}

func (h *AdminHandler) UpdateExchangeOrderStatus(c *gin.Context) {
	req, ok := bindStatusChange(c)
	if !ok {
		return
	}
	err := h.transitions.UpdateExchangeOrderStatus(c.Request.Context(),
		c.Param("id"), domain.ExchangeOrderStatus(req.NewStatus), adminActor(c), req.Force)
	h.respondStatusChange(c, err)
}

type walletAdjustRequest struct {
	Currency string          `json:"currency" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Reason   string          `json:"reason" binding:"required"`
}

func (h *AdminHandler) AdjustWallet(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "user_id must be an integer",
		})
		return
	}

	var req walletAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	err = h.wallets.ManualAdjustment(c.Request.Context(), userID, req.Currency, req.Amount, adminActor(c), req.Reason)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "adjusted"})
}

func (h *AdminHandler) ApproveCashout(c *gin.Context) {
	err := h.cashouts.ApproveCashout(c.Request.Context(), c.Param("id"), adminActor(c))
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

type disputeResolveRequest struct {
	Resolution string `json:"resolution" binding:"required"`
	Note       string `json:"note"`
}

func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	var req disputeResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	err := h.disputes.ResolveDispute(c.Request.Context(), c.Param("id"), adminActor(c), req.Resolution, req.Note)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

func (h *AdminHandler) ListOrphanedEscrows(c *gin.Context) {
	orphans, err := h.recovery.ListOrphanedEscrows(c.Request.Context())
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orphans": orphans,
		"total":   len(orphans),
	})
}

type recoveryRequest struct {
	DryRun bool `json:"dry_run"`
}

func (h *AdminHandler) RecoverOrphanedEscrows(c *gin.Context) {
	var req recoveryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": err.Error(),
			})
			return
		}
	}

	summary, err := h.recovery.RecoverAll(c.Request.Context(), req.DryRun)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func bindStatusChange(c *gin.Context) (statusChangeRequest, bool) {
	var req statusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return req, false
	}
	return req, true
}

func (h *AdminHandler) respondStatusChange(c *gin.Context, err error) {
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// respondDomainError maps usecase errors onto HTTP codes: unknown entities
// are 404, rejected transitions 409, business-rule violations 400.
func (h *AdminHandler) respondDomainError(c *gin.Context, err error) {
	var transitionErr *domain.StateTransitionError
	switch {
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Conflict",
			"message": transitionErr.Error(),
		})
	case errors.Is(err, domain.ErrEscrowNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrCashoutNotFound),
		errors.Is(err, domain.ErrExchangeOrderNotFound),
		errors.Is(err, domain.ErrDisputeNotFound),
		errors.Is(err, domain.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": err.Error(),
		})
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientFrozen),
		errors.Is(err, domain.ErrUnderpayment):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	default:
		h.log.Error("admin operation failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "operation failed",
		})
	}
}

// adminActor returns the audit identity set by the RequireAdminActor
// middleware.
func adminActor(c *gin.Context) string {
	return c.GetString(adminActorKey)
}
