package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"filemarket-bot/internal/bot/states"
	rdb "filemarket-bot/pkg/redis"
)

// ErrNotFound is returned when a key is missing or has expired.
var ErrNotFound = errors.New("not found")

type Storage struct {
	client         *rdb.Client
	dialogTTL      time.Duration
	correlationTTL time.Duration
}

func New(client *rdb.Client, dialogTTL, correlationTTL time.Duration) *Storage {
	return &Storage{
		client:         client,
		dialogTTL:      dialogTTL,
		correlationTTL: correlationTTL,
	}
}

func (s *Storage) Dialog(ctx context.Context, userID int64) (*DialogState, error) {
	data, err := s.client.Get(ctx, dialogKey(userID))
	if errors.Is(err, rdb.Nil) {
		return &DialogState{Step: states.StepNone}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dialog state: %w", err)
	}

	var state DialogState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal dialog state: %w", err)
	}
	if state.Step == "" {
		state.Step = states.StepNone
	}
	return &state, nil
}

func (s *Storage) SaveDialog(ctx context.Context, userID int64, state *DialogState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal dialog state: %w", err)
	}
	return s.client.Set(ctx, dialogKey(userID), data, s.dialogTTL)
}

func (s *Storage) ClearDialog(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, dialogKey(userID))
}

func (s *Storage) PutCorrelation(ctx context.Context, orderID int64, c Correlation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal correlation: %w", err)
	}
	return s.client.Set(ctx, correlationKey(orderID), data, s.correlationTTL)
}

func (s *Storage) Correlation(ctx context.Context, orderID int64) (*Correlation, error) {
	data, err := s.client.Get(ctx, correlationKey(orderID))
	if errors.Is(err, rdb.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get correlation: %w", err)
	}

	var c Correlation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal correlation: %w", err)
	}
	return &c, nil
}

func (s *Storage) DeleteCorrelation(ctx context.Context, orderID int64) error {
	return s.client.Del(ctx, correlationKey(orderID))
}

// Wallet-prompt flag: "this user owes us a wallet address". Persisted with
// the same lifecycle as the dialog state so it survives process restarts.

func (s *Storage) SetWalletPrompt(ctx context.Context, userID int64) error {
	return s.client.Set(ctx, walletPromptKey(userID), []byte("1"), s.dialogTTL)
}

func (s *Storage) WalletPrompted(ctx context.Context, userID int64) (bool, error) {
	_, err := s.client.Get(ctx, walletPromptKey(userID))
	if errors.Is(err, rdb.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get wallet prompt flag: %w", err)
	}
	return true, nil
}

func (s *Storage) ClearWalletPrompt(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, walletPromptKey(userID))
}

// Last published exchange price per symbol, no expiry.

func (s *Storage) LastPrice(ctx context.Context, symbol string) (string, error) {
	data, err := s.client.Get(ctx, priceKey(symbol))
	if errors.Is(err, rdb.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get last price: %w", err)
	}
	return string(data), nil
}

func (s *Storage) SetLastPrice(ctx context.Context, symbol, price string) error {
	return s.client.Set(ctx, priceKey(symbol), []byte(price), 0)
}

func dialogKey(userID int64) string {
	return fmt.Sprintf("dialog:%d", userID)
}

func correlationKey(orderID int64) string {
	return fmt.Sprintf("corr:%d", orderID)
}

func walletPromptKey(userID int64) string {
	return fmt.Sprintf("walletprompt:%d", userID)
}

func priceKey(symbol string) string {
	return fmt.Sprintf("ticker:%s", symbol)
}
