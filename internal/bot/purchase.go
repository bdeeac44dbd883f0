package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filemarket-bot/internal/payment"
	"filemarket-bot/internal/storage"
	redisstorage "filemarket-bot/internal/storage/redis"
)

// handleBuy runs one purchase attempt: listing lookup, pending order,
// correlation record, then the gateway payment request. Every failure is
// terminal for the attempt; the buyer retries with a fresh /buy.
func (b *Bot) handleBuy(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	buyerID := msg.From.ID

	publicID := strings.TrimSpace(msg.CommandArguments())
	if publicID == "" {
		b.send(tgbotapi.NewMessage(chatID, "Usage: /buy <listing id>"))
		return
	}

	listing, err := b.ledger.ListingByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.sendError(chatID, "Listing not found. Check the ID and try again.")
			return
		}
		b.logger.Error("Failed to look up listing",
			zap.String("public_id", publicID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	orderID, err := b.ledger.CreateOrder(ctx, buyerID, listing.ID, listing.Price)
	if err != nil || orderID == 0 {
		b.logger.Error("Failed to create order",
			zap.Int64("buyer_id", buyerID),
			zap.Int64("file_id", listing.ID),
			zap.Error(err))
		b.sendError(chatID, "Could not create your order. Please try again.")
		return
	}

	if err := b.corr.PutCorrelation(ctx, orderID, redisstorage.Correlation{
		BuyerChatID: chatID,
		FileID:      listing.ID,
		Amount:      listing.Price,
	}); err != nil {
		b.logger.Error("Failed to store correlation record",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		b.sendError(chatID, "Could not create your order. Please try again.")
		return
	}

	callbackURL := fmt.Sprintf("%s/payment_callback?order_id=%d",
		strings.TrimRight(b.cfg.CallbackBaseURL, "/"), orderID)
	description := fmt.Sprintf("%s (order %d)", listing.Caption, orderID)

	result, err := b.gateway.RequestPayment(ctx, listing.Price, description, callbackURL)
	if err != nil {
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			b.sendError(chatID, "Payment gateway rejected the request: "+gwErr.Message)
			return
		}
		b.logger.Error("Payment request failed",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		b.sendError(chatID, "Could not reach the payment gateway. Please try again.")
		return
	}

	// The authority is persisted before the buyer ever sees a payment link.
	if err := b.ledger.SetOrderAuthority(ctx, orderID, result.Authority); err != nil {
		b.logger.Error("Failed to store order authority",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🧾 Order #%d created.\nAmount: %d\n\nPay here: %s",
		orderID, listing.Price, result.PayURL)))
}
