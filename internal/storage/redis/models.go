package redis

import "filemarket-bot/internal/bot/states"

// DialogState is the per-user admin listing-flow state.
type DialogState struct {
	Step  states.Step   `json:"step"`
	Draft *states.Draft `json:"draft,omitempty"`
}

// Correlation bridges an order created at purchase time and the asynchronous
// gateway callback. It carries the amount so the callback never re-reads the
// listing price.
type Correlation struct {
	BuyerChatID int64 `json:"buyer_chat_id"`
	FileID      int64 `json:"file_id"`
	Amount      int64 `json:"amount"`
}
