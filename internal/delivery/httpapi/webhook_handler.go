package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/usecase"
)

// WebhookHandler terminates provider webhooks. Response codes follow the
// contract providers retry against: 401 for auth failures, 400 for payloads
// that will never parse, 500 when we genuinely could not process and want a
// redelivery, 200 for everything else including not-yet-actionable payments.
type WebhookHandler struct {
	webhooks usecase.WebhookUsecase
	log      *slog.Logger
}

func NewWebhookHandler(webhooks usecase.WebhookUsecase, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, log: log}
}

// Handle serves both GET and POST deliveries: some gateways push JSON
// bodies, others encode everything in the query string.
func (h *WebhookHandler) Handle(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "failed to read request body",
		})
		return
	}

	outcome, err := h.webhooks.ProcessWebhook(c.Request.Context(), usecase.ProcessWebhookInput{
		Provider:    provider,
		RawBody:     body,
		Query:       c.Request.URL.Query(),
		Signature:   c.GetHeader("X-Signature"),
		ReferenceID: c.Param("reference_id"),
	})
	if err != nil {
		h.respondError(c, provider, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  outcome.Status,
		"message": outcome.Message,
	})
}

func (h *WebhookHandler) respondError(c *gin.Context, provider string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownProvider), errors.Is(err, domain.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "webhook rejected",
		})
	case errors.Is(err, domain.ErrMalformedPayload),
		errors.Is(err, domain.ErrMalformedReference),
		errors.Is(err, domain.ErrUnderpayment):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	default:
		// Includes lock-backend outages: fail closed and let the provider
		// retry. Internals never leak to the sender.
		h.log.Error("webhook processing failed", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "failed to process webhook",
		})
	}
}
