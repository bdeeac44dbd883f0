package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filemarket-bot/internal/bot/states"
	"filemarket-bot/internal/config"
)

type Bot struct {
	bot     *tgbotapi.BotAPI
	sender  Sender
	logger  *zap.Logger
	dialogs DialogStore
	ledger  Ledger
	airdrop AirdropStore
	flags   WalletFlags
	corr    CorrelationStore
	gateway PaymentRequester
	cfg     *config.Config
}

func New(
	cfg *config.Config,
	dialogs DialogStore,
	ledger Ledger,
	airdrop AirdropStore,
	flags WalletFlags,
	corr CorrelationStore,
	gateway PaymentRequester,
	logger *zap.Logger,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	botAPI.Debug = cfg.Debug

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	return &Bot{
		bot:     botAPI,
		sender:  botAPI,
		logger:  logger,
		dialogs: dialogs,
		ledger:  ledger,
		airdrop: airdrop,
		flags:   flags,
		corr:    corr,
		gateway: gateway,
		cfg:     cfg,
	}, nil
}

// API exposes the underlying Telegram client so the webhook handler and the
// price ticker can send through the same authorized session.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.bot
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			b.bot.StopReceivingUpdates()
			return nil

		case update := <-updates:
			if update.Message != nil {
				b.processMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// An in-progress admin listing flow outranks everything else for that user.
	if b.isAdmin(userID) {
		dialog, err := b.dialogs.Dialog(ctx, userID)
		if err != nil {
			b.logger.Error("Failed to get dialog state",
				zap.Int64("user_id", userID),
				zap.Error(err))
			b.sendError(chatID, "Something went wrong processing your message.")
			return
		}
		if dialog.Step != states.StepNone {
			b.handleDialogStep(ctx, msg, dialog)
			return
		}
	}

	prompted, err := b.flags.WalletPrompted(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to check wallet prompt flag",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
	if prompted && msg.Text != "" {
		b.handleWalletReply(ctx, msg)
		return
	}

	b.handleDefault(ctx, chatID)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	cmd := msg.Command()

	// Admin-flow states take priority over all other command handling until
	// the flow returns to none; only newfile and cancel break through.
	if b.isAdmin(userID) && cmd != "newfile" && cmd != "cancel" {
		dialog, err := b.dialogs.Dialog(ctx, userID)
		if err == nil && dialog.Step != states.StepNone {
			b.handleDialogStep(ctx, msg, dialog)
			return
		}
	}

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID, userID)
	case "help":
		b.handleHelp(ctx, chatID, userID)
	case "cancel":
		b.handleCancel(ctx, chatID, userID)
	case "newfile":
		if !b.isAdmin(userID) {
			b.sendError(chatID, "This command is for admins only.")
			return
		}
		b.handleNewListing(ctx, chatID, userID)
	case "buy":
		b.handleBuy(ctx, msg)
	case "tasks":
		b.handleTasks(ctx, chatID, userID)
	case "complete":
		b.handleComplete(ctx, msg)
	case "myrewards":
		b.handleMyRewards(ctx, chatID, userID)
	case "connectwallet":
		b.handleConnectWallet(ctx, chatID, userID)
	case "addtask":
		b.handleAddTask(ctx, msg)
	case "settaskdaily":
		b.handleSetTaskDaily(ctx, msg, true)
	case "unsettaskdaily":
		b.handleSetTaskDaily(ctx, msg, false)
	case "removetask":
		b.handleRemoveTask(ctx, msg)
	default:
		b.sendError(chatID, "Unknown command. Send /help for the command list.")
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64) {
	created, err := b.airdrop.EnsureUser(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to ensure user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred. Please try again later.")
		return
	}

	if created {
		b.send(tgbotapi.NewMessage(chatID, "Welcome! 👋 Your profile has been created.\nSend /help to see what I can do."))
	} else {
		b.send(tgbotapi.NewMessage(chatID, "Welcome back! 👋\nSend /help to see what I can do."))
	}
}

func (b *Bot) handleHelp(ctx context.Context, chatID, userID int64) {
	text := `🛒 Shop
/buy <listing id> — purchase a file

✨ Airdrop
/tasks — see today's tasks
/complete <task id> — mark a task as done
/myrewards — your accumulated points
/connectwallet — link your wallet address

/cancel — abort the current conversation`

	if b.isAdmin(userID) {
		text += `

👑 Admin
/newfile — create a new file listing
/addtask <TYPE> <points> <true|false> <description> — add a task
/settaskdaily <task id>, /unsettaskdaily <task id>, /removetask <task id>`
	}

	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleCancel(ctx context.Context, chatID, userID int64) {
	if err := b.dialogs.ClearDialog(ctx, userID); err != nil {
		b.logger.Error("Failed to clear dialog state",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
	if err := b.flags.ClearWalletPrompt(ctx, userID); err != nil {
		b.logger.Error("Failed to clear wallet prompt flag",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
	b.send(tgbotapi.NewMessage(chatID, "Cancelled."))
}

func (b *Bot) handleDefault(ctx context.Context, chatID int64) {
	b.send(tgbotapi.NewMessage(chatID, "I didn't understand that. Send /help for the command list."))
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, "❌ "+text))
}
