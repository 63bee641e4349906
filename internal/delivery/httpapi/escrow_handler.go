package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/usecase"
	"github.com/shopspring/decimal"
)

// EscrowHandler is the platform-facing intake: the trading frontend opens
// escrows here and hands the minted trade reference to the buyer.
type EscrowHandler struct {
	escrows usecase.EscrowUsecase
	log     *slog.Logger
}

func NewEscrowHandler(escrows usecase.EscrowUsecase, log *slog.Logger) *EscrowHandler {
	return &EscrowHandler{escrows: escrows, log: log}
}

type createEscrowRequest struct {
	BuyerID     int64           `json:"buyer_id" binding:"required"`
	SellerID    *int64          `json:"seller_id"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency" binding:"required"`
	FeePercent  decimal.Decimal `json:"fee_percent"`
	CallbackURL string          `json:"callback_url"`
}

func (h *EscrowHandler) Create(c *gin.Context) {
	var req createEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	escrow, err := h.escrows.CreateEscrow(c.Request.Context(), usecase.CreateEscrowInput{
		BuyerID:     req.BuyerID,
		SellerID:    req.SellerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		FeePercent:  req.FeePercent,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, escrow)
}

func (h *EscrowHandler) Get(c *gin.Context) {
	escrow, err := h.escrows.GetEscrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrEscrowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": err.Error(),
			})
			return
		}
		h.log.Error("escrow lookup failed", "escrow_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "failed to load escrow",
		})
		return
	}
	c.JSON(http.StatusOK, escrow)
}
