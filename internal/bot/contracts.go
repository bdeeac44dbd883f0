package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"filemarket-bot/internal/payment"
	"filemarket-bot/internal/storage"
	redisstorage "filemarket-bot/internal/storage/redis"
)

// Sender sends Telegram messages. Satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Ledger is the relational side of the shop: listings and orders.
type Ledger interface {
	CreateListing(ctx context.Context, listing storage.Listing) (int64, error)
	ListingByPublicID(ctx context.Context, publicID string) (*storage.Listing, error)
	CreateOrder(ctx context.Context, buyerID, fileID, amount int64) (int64, error)
	SetOrderAuthority(ctx context.Context, orderID int64, authority string) error
}

// DialogStore persists the per-user admin listing-flow state.
type DialogStore interface {
	Dialog(ctx context.Context, userID int64) (*redisstorage.DialogState, error)
	SaveDialog(ctx context.Context, userID int64, state *redisstorage.DialogState) error
	ClearDialog(ctx context.Context, userID int64) error
}

// CorrelationStore holds the short-lived order-to-callback bridge records.
type CorrelationStore interface {
	PutCorrelation(ctx context.Context, orderID int64, c redisstorage.Correlation) error
}

// WalletFlags persists the "this user owes us a wallet address" marker.
type WalletFlags interface {
	SetWalletPrompt(ctx context.Context, userID int64) error
	WalletPrompted(ctx context.Context, userID int64) (bool, error)
	ClearWalletPrompt(ctx context.Context, userID int64) error
}

// PaymentRequester opens payment sessions at the gateway.
type PaymentRequester interface {
	RequestPayment(ctx context.Context, amount int64, description, callbackURL string) (*payment.RequestResult, error)
}

// AirdropStore is the task/reward side of the bot.
type AirdropStore interface {
	EnsureUser(ctx context.Context, telegramID int64) (bool, error)
	UserByTelegramID(ctx context.Context, telegramID int64) (*storage.User, error)
	SetUserWallet(ctx context.Context, telegramID int64, wallet string) error
	CreateTask(ctx context.Context, task storage.Task) error
	TaskByCustomID(ctx context.Context, customID string) (*storage.Task, error)
	TaskByType(ctx context.Context, taskType string) (*storage.Task, error)
	DailyActiveTasks(ctx context.Context) ([]storage.Task, error)
	SetTaskDaily(ctx context.Context, customID string, daily bool) (bool, error)
	DeleteTask(ctx context.Context, customID string) (bool, error)
	CompletedTaskIDs(ctx context.Context, telegramID int64) ([]string, error)
	CompleteTask(ctx context.Context, telegramID int64, customID string) error
	UserRewardPoints(ctx context.Context, telegramID int64) (int64, error)
}

var (
	_ Ledger           = (*storage.PostgresStorage)(nil)
	_ AirdropStore     = (*storage.PostgresStorage)(nil)
	_ DialogStore      = (*redisstorage.Storage)(nil)
	_ CorrelationStore = (*redisstorage.Storage)(nil)
	_ WalletFlags      = (*redisstorage.Storage)(nil)
	_ PaymentRequester = (*payment.Client)(nil)
	_ Sender           = (*tgbotapi.BotAPI)(nil)
)
