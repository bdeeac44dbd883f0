package storage

import "time"

// Listing is a sellable file entry. The public ID is the token buyers use
// with /buy; it is generated once and never changes.
type Listing struct {
	ID           int64     `db:"id"`
	PublicID     string    `db:"public_id"`
	FileID       string    `db:"file_id"`
	MessageID    int       `db:"message_id"`
	SourceChatID int64     `db:"source_chat_id"`
	Caption      string    `db:"caption"`
	Price        int64     `db:"price"`
	Kind         string    `db:"kind"`
	CreatedAt    time.Time `db:"created_at"`
}

// OrderStatus is the payment lifecycle of one purchase attempt.
type OrderStatus int

const (
	OrderPending     OrderStatus = 0
	OrderPaid        OrderStatus = 1
	OrderFailed      OrderStatus = 2
	OrderSystemError OrderStatus = 3
	OrderExpired     OrderStatus = 4
)

// Order transitions exactly once from pending to a terminal status. A retried
// purchase creates a new row; rows are never re-created or reused.
type Order struct {
	ID           int64       `db:"id"`
	BuyerID      int64       `db:"buyer_id"`
	FileID       int64       `db:"file_id"`
	Status       OrderStatus `db:"status"`
	Amount       int64       `db:"amount"`
	Authority    *string     `db:"authority"`
	RefID        *string     `db:"ref_id"`
	RawPayload   []byte      `db:"raw_payload"`
	StatusDetail *string     `db:"status_detail"`
	PaidAt       *time.Time  `db:"paid_at"`
	CreatedAt    time.Time   `db:"created_at"`
}

// PaymentHistory is an append-only record of verified payments.
type PaymentHistory struct {
	ID         int64     `db:"id"`
	OrderID    int64     `db:"order_id"`
	RefID      string    `db:"ref_id"`
	Amount     int64     `db:"amount"`
	RawPayload []byte    `db:"raw_payload"`
	CreatedAt  time.Time `db:"created_at"`
}

// Task is an airdrop task users can complete for reward points.
type Task struct {
	ID           int64     `db:"id"`
	CustomID     string    `db:"custom_id"`
	Type         string    `db:"type"`
	Description  string    `db:"description"`
	RewardPoints int64     `db:"reward_points"`
	DailyActive  bool      `db:"daily_active"`
	CreatedAt    time.Time `db:"created_at"`
}

// User is an airdrop participant profile.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Wallet     *string   `db:"wallet"`
	CreatedAt  time.Time `db:"created_at"`
}
