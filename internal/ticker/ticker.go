package ticker

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// PriceSource provides the latest trade price for a market symbol.
type PriceSource interface {
	LastTradePrice(ctx context.Context, symbol string) (string, error)
}

// PriceCache remembers the last price published per symbol.
type PriceCache interface {
	LastPrice(ctx context.Context, symbol string) (string, error)
	SetLastPrice(ctx context.Context, symbol, price string) error
}

// Sender sends Telegram messages. Satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Ticker polls the exchange and posts price changes to a channel. Unchanged
// prices are not re-announced.
type Ticker struct {
	source    PriceSource
	cache     PriceCache
	sender    Sender
	channelID int64
	symbols   []string
	interval  time.Duration
	logger    *zap.Logger
}

func New(source PriceSource, cache PriceCache, sender Sender, channelID int64, symbols []string, interval time.Duration, logger *zap.Logger) *Ticker {
	return &Ticker{
		source:    source,
		cache:     cache,
		sender:    sender,
		channelID: channelID,
		symbols:   symbols,
		interval:  interval,
		logger:    logger,
	}
}

func (t *Ticker) Run(ctx context.Context) {
	t.logger.Info("Starting price ticker",
		zap.Strings("symbols", t.symbols),
		zap.Duration("interval", t.interval))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Stopping price ticker")
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick checks every watched symbol once. A failure on one symbol does not
// stop the others.
func (t *Ticker) Tick(ctx context.Context) {
	for _, symbol := range t.symbols {
		if err := t.checkSymbol(ctx, symbol); err != nil {
			t.logger.Warn("Price check failed",
				zap.String("symbol", symbol),
				zap.Error(err))
		}
	}
}

func (t *Ticker) checkSymbol(ctx context.Context, symbol string) error {
	price, err := t.source.LastTradePrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}

	last, err := t.cache.LastPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("read cached price: %w", err)
	}

	if last == price {
		t.logger.Debug("Price unchanged",
			zap.String("symbol", symbol),
			zap.String("price", price))
		return nil
	}

	msg := tgbotapi.NewMessage(t.channelID, fmt.Sprintf("💸 <b>%s</b> last trade price: %s", symbol, price))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("send update: %w", err)
	}

	if err := t.cache.SetLastPrice(ctx, symbol, price); err != nil {
		return fmt.Errorf("cache price: %w", err)
	}

	t.logger.Info("Published price change",
		zap.String("symbol", symbol),
		zap.String("old", last),
		zap.String("new", price))
	return nil
}
