package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filemarket-bot/internal/payment"
	"filemarket-bot/internal/storage"
	redisstorage "filemarket-bot/internal/storage/redis"
)

// statusOK is the gateway's success marker in the callback query string.
const statusOK = "OK"

// Orders is the slice of the ledger the callback needs.
type Orders interface {
	MarkOrderPaid(ctx context.Context, orderID int64, refID string, rawPayload []byte, paidAt time.Time) error
	MarkOrderFailed(ctx context.Context, orderID int64, detail string, rawPayload []byte) error
	MarkOrderSystemError(ctx context.Context, orderID int64, detail string) error
	AppendPaymentHistory(ctx context.Context, orderID int64, refID string, amount int64, rawPayload []byte) error
	ListingByID(ctx context.Context, id int64) (*storage.Listing, error)
}

// Correlations reads and consumes the order-to-callback bridge records.
type Correlations interface {
	Correlation(ctx context.Context, orderID int64) (*redisstorage.Correlation, error)
	DeleteCorrelation(ctx context.Context, orderID int64) error
}

// Verifier checks a payment session after the gateway calls back.
type Verifier interface {
	VerifyPayment(ctx context.Context, amount int64, authority string) (*payment.VerifyResult, error)
}

// Sender sends Telegram messages and forwards. Satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type CallbackHandler struct {
	orders   Orders
	corr     Correlations
	verifier Verifier
	sender   Sender
	logger   *zap.Logger
}

func NewCallbackHandler(orders Orders, corr Correlations, verifier Verifier, sender Sender, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		orders:   orders,
		corr:     corr,
		verifier: verifier,
		sender:   sender,
		logger:   logger,
	}
}

// HandleCallback finalizes an order after the gateway redirects the buyer.
// The correlation record is deleted exactly once regardless of the branch
// taken, and the gateway always gets a plain acknowledgement.
func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderIDStr := r.URL.Query().Get("order_id")
	if orderIDStr == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}

	corr, err := h.corr.Correlation(ctx, orderID)
	if err != nil {
		if !errors.Is(err, redisstorage.ErrNotFound) {
			h.logger.Error("Failed to read correlation record",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
		http.Error(w, "invalid or expired", http.StatusBadRequest)
		return
	}

	defer func() {
		if err := h.corr.DeleteCorrelation(ctx, orderID); err != nil {
			h.logger.Error("Failed to delete correlation record",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}()

	status := r.URL.Query().Get("Status")
	authority := r.URL.Query().Get("Authority")

	if err := h.finalize(ctx, orderID, corr, status, authority); err != nil {
		h.logger.Error("Callback processing failed",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		if markErr := h.orders.MarkOrderSystemError(ctx, orderID, err.Error()); markErr != nil {
			h.logger.Error("Failed to mark order system error",
				zap.Int64("order_id", orderID),
				zap.Error(markErr))
		}
		h.notify(corr.BuyerChatID, "❌ A system error occurred while processing your payment. Please contact support.")
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (h *CallbackHandler) finalize(ctx context.Context, orderID int64, corr *redisstorage.Correlation, status, authority string) error {
	if status != statusOK || authority == "" {
		detail := fmt.Sprintf("gateway status: %s", status)
		if err := h.orders.MarkOrderFailed(ctx, orderID, detail, nil); err != nil {
			return fmt.Errorf("mark order failed: %w", err)
		}
		h.notify(corr.BuyerChatID, fmt.Sprintf(
			"❌ Payment for order #%d did not complete (status: %s). You can retry with a new /buy.", orderID, status))
		return nil
	}

	result, err := h.verifier.VerifyPayment(ctx, corr.Amount, authority)
	if err != nil {
		return fmt.Errorf("verify payment: %w", err)
	}

	if !result.Verified() {
		detail := fmt.Sprintf("verification failed: code %d", result.Code)
		if err := h.orders.MarkOrderFailed(ctx, orderID, detail, result.RawPayload); err != nil {
			return fmt.Errorf("mark order failed: %w", err)
		}
		h.notify(corr.BuyerChatID, fmt.Sprintf(
			"❌ Payment verification for order #%d failed (gateway code %d).", orderID, result.Code))
		return nil
	}

	refID := strconv.FormatInt(result.RefID, 10)
	paidAt := time.Now()

	if err := h.orders.MarkOrderPaid(ctx, orderID, refID, result.RawPayload, paidAt); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	// History is best-effort: a write failure is logged, never surfaced.
	if err := h.orders.AppendPaymentHistory(ctx, orderID, refID, corr.Amount, result.RawPayload); err != nil {
		h.logger.Error("Failed to append payment history",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}

	h.notify(corr.BuyerChatID, fmt.Sprintf(
		"✅ Payment for order #%d confirmed!\nReference: %s\nSending your file...", orderID, refID))

	listing, err := h.orders.ListingByID(ctx, corr.FileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.logger.Error("Paid order references missing listing",
				zap.Int64("order_id", orderID),
				zap.Int64("file_id", corr.FileID))
			h.notify(corr.BuyerChatID,
				"⚠️ Your payment is confirmed but the file details are missing. Support will follow up with you.")
			return nil
		}
		return fmt.Errorf("look up listing: %w", err)
	}

	forward := tgbotapi.NewForward(corr.BuyerChatID, listing.SourceChatID, listing.MessageID)
	if _, err := h.sender.Send(forward); err != nil {
		return fmt.Errorf("forward file: %w", err)
	}

	return nil
}

func (h *CallbackHandler) notify(chatID int64, text string) {
	if _, err := h.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Error("Failed to notify buyer",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

var (
	_ Orders       = (*storage.PostgresStorage)(nil)
	_ Correlations = (*redisstorage.Storage)(nil)
	_ Verifier     = (*payment.Client)(nil)
)
