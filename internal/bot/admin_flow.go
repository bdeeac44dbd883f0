package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filemarket-bot/internal/bot/states"
	"filemarket-bot/internal/storage"
	redisstorage "filemarket-bot/internal/storage/redis"
)

// handleNewListing starts a fresh listing flow, discarding any previous draft.
func (b *Bot) handleNewListing(ctx context.Context, chatID, userID int64) {
	dialog, err := b.dialogs.Dialog(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get dialog state",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	next, err := states.Next(dialog.Step, states.EventBegin)
	if err != nil {
		b.logger.Error("Invalid begin transition",
			zap.Int64("user_id", userID),
			zap.String("step", string(dialog.Step)),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	if err := b.dialogs.SaveDialog(ctx, userID, &redisstorage.DialogState{
		Step:  next,
		Draft: &states.Draft{},
	}); err != nil {
		b.logger.Error("Failed to save dialog state",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, "📄 Send me the file you want to sell (a document, photo, video, or audio)."))
}

func (b *Bot) handleDialogStep(ctx context.Context, msg *tgbotapi.Message, dialog *redisstorage.DialogState) {
	switch dialog.Step {
	case states.StepAwaitingFile:
		b.handleAwaitingFile(ctx, msg, dialog)
	case states.StepAwaitingPrice:
		b.handleAwaitingPrice(ctx, msg, dialog)
	case states.StepAwaitingCaption:
		b.handleAwaitingCaption(ctx, msg, dialog)
	default:
		b.logger.Warn("Message routed to unknown dialog step",
			zap.Int64("user_id", msg.From.ID),
			zap.String("step", string(dialog.Step)))
		b.handleDefault(ctx, msg.Chat.ID)
	}
}

func (b *Bot) handleAwaitingFile(ctx context.Context, msg *tgbotapi.Message, dialog *redisstorage.DialogState) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	draft := detectMedia(msg)
	if draft == nil {
		b.send(tgbotapi.NewMessage(chatID, "⚠️ That message has no file attached. Send a document, photo, video, or audio."))
		return
	}

	next, err := states.Next(dialog.Step, states.EventFile)
	if err != nil {
		b.logger.Error("Invalid file transition",
			zap.Int64("user_id", userID),
			zap.String("step", string(dialog.Step)),
			zap.Error(err))
		return
	}

	dialog.Step = next
	dialog.Draft = draft

	if err := b.dialogs.SaveDialog(ctx, userID, dialog); err != nil {
		b.logger.Error("Failed to save dialog state",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, "💰 Got it. Now send the price as a positive whole number (smallest currency unit)."))
}

func (b *Bot) handleAwaitingPrice(ctx context.Context, msg *tgbotapi.Message, dialog *redisstorage.DialogState) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	price, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil || price <= 0 {
		b.send(tgbotapi.NewMessage(chatID, "⚠️ That is not a valid price. Send a positive whole number, e.g. 1500."))
		return
	}

	next, err := states.Next(dialog.Step, states.EventPrice)
	if err != nil {
		b.logger.Error("Invalid price transition",
			zap.Int64("user_id", userID),
			zap.String("step", string(dialog.Step)),
			zap.Error(err))
		return
	}

	dialog.Step = next
	if dialog.Draft == nil {
		dialog.Draft = &states.Draft{}
	}
	dialog.Draft.Price = price

	if err := b.dialogs.SaveDialog(ctx, userID, dialog); err != nil {
		b.logger.Error("Failed to save dialog state",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, "✍️ Finally, send a caption for the listing."))
}

func (b *Bot) handleAwaitingCaption(ctx context.Context, msg *tgbotapi.Message, dialog *redisstorage.DialogState) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	// The state and draft are cleared no matter how persistence goes; a
	// failed save is reported to the admin, never retried silently.
	defer func() {
		if err := b.dialogs.ClearDialog(ctx, userID); err != nil {
			b.logger.Error("Failed to clear dialog state",
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
	}()

	if _, err := states.Next(dialog.Step, states.EventCaption); err != nil {
		b.logger.Error("Invalid caption transition",
			zap.Int64("user_id", userID),
			zap.String("step", string(dialog.Step)),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Start over with /newfile.")
		return
	}

	if !dialog.Draft.Complete() {
		b.logger.Error("Draft incomplete at caption step",
			zap.Int64("user_id", userID))
		b.sendError(chatID, "The listing draft is incomplete. Start over with /newfile.")
		return
	}

	publicID, err := NewListingID()
	if err != nil {
		b.logger.Error("Failed to generate listing id",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "Failed to create the listing. Start over with /newfile.")
		return
	}

	if _, err := b.ledger.CreateListing(ctx, storage.Listing{
		PublicID:     publicID,
		FileID:       dialog.Draft.FileID,
		MessageID:    dialog.Draft.MessageID,
		SourceChatID: dialog.Draft.SourceChatID,
		Caption:      msg.Text,
		Price:        dialog.Draft.Price,
		Kind:         string(dialog.Draft.Kind),
	}); err != nil {
		b.logger.Error("Failed to save listing",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "Failed to save the listing. Start over with /newfile.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ Listing created!\n\nID: %s\nPrice: %d\nCaption: %s\n\nBuyers can purchase it with /buy %s",
		publicID, dialog.Draft.Price, msg.Text, publicID)))
}

// detectMedia extracts the attachable media reference from a message,
// first match wins in document, photo, video, audio order.
func detectMedia(msg *tgbotapi.Message) *states.Draft {
	draft := &states.Draft{
		MessageID:    msg.MessageID,
		SourceChatID: msg.Chat.ID,
	}

	switch {
	case msg.Document != nil:
		draft.FileID = msg.Document.FileID
		draft.Kind = states.KindDocument
	case len(msg.Photo) > 0:
		draft.FileID = msg.Photo[len(msg.Photo)-1].FileID
		draft.Kind = states.KindPhoto
	case msg.Video != nil:
		draft.FileID = msg.Video.FileID
		draft.Kind = states.KindVideo
	case msg.Audio != nil:
		draft.FileID = msg.Audio.FileID
		draft.Kind = states.KindAudio
	default:
		return nil
	}

	return draft
}
