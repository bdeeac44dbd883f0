package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filemarket-bot/internal/bot/states"
	"filemarket-bot/internal/config"
	"filemarket-bot/internal/payment"
	"filemarket-bot/internal/storage"
	redisstorage "filemarket-bot/internal/storage/redis"
)

// Shared fakes for the bot handler tests. The events log records the order
// of cross-component side effects so tests can assert sequencing.

type fixture struct {
	bot     *Bot
	sender  *fakeSender
	dialogs *fakeDialogs
	ledger  *fakeLedger
	corr    *fakeCorr
	flags   *fakeFlags
	gateway *fakeGateway
	airdrop *fakeAirdrop
	events  *[]string
}

func newFixture() *fixture {
	events := &[]string{}
	f := &fixture{
		sender:  &fakeSender{events: events},
		dialogs: &fakeDialogs{states: map[int64]*redisstorage.DialogState{}},
		ledger:  &fakeLedger{listings: map[string]*storage.Listing{}, orders: map[int64]*storage.Order{}, events: events},
		corr:    &fakeCorr{records: map[int64]redisstorage.Correlation{}},
		flags:   &fakeFlags{set: map[int64]bool{}},
		gateway: &fakeGateway{},
		airdrop: newFakeAirdrop(),
		events:  events,
	}
	f.bot = &Bot{
		sender:  f.sender,
		logger:  zap.NewNop(),
		dialogs: f.dialogs,
		ledger:  f.ledger,
		airdrop: f.airdrop,
		flags:   f.flags,
		corr:    f.corr,
		gateway: f.gateway,
		cfg: &config.Config{
			AdminIDs:        []int64{1},
			CallbackBaseURL: "https://cb.example",
		},
	}
	return f
}

func (f *fixture) lastMessage() string {
	if len(f.sender.messages) == 0 {
		return ""
	}
	return f.sender.messages[len(f.sender.messages)-1].Text
}

// textMsg builds a plain text message from userID in chatID.
func textMsg(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
}

// cmdMsg builds a command message ("/buy abc") with the bot_command entity set.
func cmdMsg(userID, chatID int64, text string) *tgbotapi.Message {
	msg := textMsg(userID, chatID, text)
	msg.Entities = []tgbotapi.MessageEntity{{
		Type:   "bot_command",
		Offset: 0,
		Length: len(strings.Fields(text)[0]),
	}}
	return msg
}

// docMsg builds a message carrying a document.
func docMsg(userID, chatID int64, fileID string) *tgbotapi.Message {
	msg := textMsg(userID, chatID, "")
	msg.MessageID = 77
	msg.Document = &tgbotapi.Document{FileID: fileID}
	return msg
}

type fakeSender struct {
	messages []tgbotapi.MessageConfig
	events   *[]string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, msg)
		*f.events = append(*f.events, "send")
	}
	return tgbotapi.Message{}, nil
}

type fakeDialogs struct {
	states map[int64]*redisstorage.DialogState
}

func (f *fakeDialogs) Dialog(ctx context.Context, userID int64) (*redisstorage.DialogState, error) {
	state, ok := f.states[userID]
	if !ok {
		return &redisstorage.DialogState{Step: states.StepNone}, nil
	}
	// Copy to mimic serialization through Redis.
	copied := *state
	if state.Draft != nil {
		draft := *state.Draft
		copied.Draft = &draft
	}
	return &copied, nil
}

func (f *fakeDialogs) SaveDialog(ctx context.Context, userID int64, state *redisstorage.DialogState) error {
	f.states[userID] = state
	return nil
}

func (f *fakeDialogs) ClearDialog(ctx context.Context, userID int64) error {
	delete(f.states, userID)
	return nil
}

type fakeLedger struct {
	listings       map[string]*storage.Listing
	orders         map[int64]*storage.Order
	nextListingID  int64
	nextOrderID    int64
	createOrderErr error
	events         *[]string
}

func (f *fakeLedger) CreateListing(ctx context.Context, listing storage.Listing) (int64, error) {
	f.nextListingID++
	listing.ID = f.nextListingID
	f.listings[listing.PublicID] = &listing
	return listing.ID, nil
}

func (f *fakeLedger) ListingByPublicID(ctx context.Context, publicID string) (*storage.Listing, error) {
	listing, ok := f.listings[publicID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return listing, nil
}

func (f *fakeLedger) CreateOrder(ctx context.Context, buyerID, fileID, amount int64) (int64, error) {
	if f.createOrderErr != nil {
		return 0, f.createOrderErr
	}
	f.nextOrderID++
	f.orders[f.nextOrderID] = &storage.Order{
		ID:      f.nextOrderID,
		BuyerID: buyerID,
		FileID:  fileID,
		Status:  storage.OrderPending,
		Amount:  amount,
	}
	return f.nextOrderID, nil
}

func (f *fakeLedger) SetOrderAuthority(ctx context.Context, orderID int64, authority string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return storage.ErrNotFound
	}
	order.Authority = &authority
	*f.events = append(*f.events, "authority")
	return nil
}

type fakeCorr struct {
	records map[int64]redisstorage.Correlation
	putErr  error
}

func (f *fakeCorr) PutCorrelation(ctx context.Context, orderID int64, c redisstorage.Correlation) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.records[orderID] = c
	return nil
}

type fakeFlags struct {
	set map[int64]bool
}

func (f *fakeFlags) SetWalletPrompt(ctx context.Context, userID int64) error {
	f.set[userID] = true
	return nil
}

func (f *fakeFlags) WalletPrompted(ctx context.Context, userID int64) (bool, error) {
	return f.set[userID], nil
}

func (f *fakeFlags) ClearWalletPrompt(ctx context.Context, userID int64) error {
	delete(f.set, userID)
	return nil
}

type fakeGateway struct {
	result   *payment.RequestResult
	err      error
	requests []int64
}

func (f *fakeGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string) (*payment.RequestResult, error) {
	f.requests = append(f.requests, amount)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAirdrop struct {
	users     map[int64]*storage.User
	tasks     map[string]*storage.Task
	completed map[int64]map[string]bool
}

func newFakeAirdrop() *fakeAirdrop {
	return &fakeAirdrop{
		users:     map[int64]*storage.User{},
		tasks:     map[string]*storage.Task{},
		completed: map[int64]map[string]bool{},
	}
}

func (f *fakeAirdrop) EnsureUser(ctx context.Context, telegramID int64) (bool, error) {
	if _, ok := f.users[telegramID]; ok {
		return false, nil
	}
	f.users[telegramID] = &storage.User{TelegramID: telegramID}
	return true, nil
}

func (f *fakeAirdrop) UserByTelegramID(ctx context.Context, telegramID int64) (*storage.User, error) {
	user, ok := f.users[telegramID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeAirdrop) SetUserWallet(ctx context.Context, telegramID int64, wallet string) error {
	user, ok := f.users[telegramID]
	if !ok {
		return storage.ErrNotFound
	}
	user.Wallet = &wallet
	return nil
}

func (f *fakeAirdrop) CreateTask(ctx context.Context, task storage.Task) error {
	f.tasks[task.CustomID] = &task
	return nil
}

func (f *fakeAirdrop) TaskByCustomID(ctx context.Context, customID string) (*storage.Task, error) {
	task, ok := f.tasks[customID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return task, nil
}

func (f *fakeAirdrop) TaskByType(ctx context.Context, taskType string) (*storage.Task, error) {
	for _, task := range f.tasks {
		if task.Type == taskType {
			return task, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeAirdrop) DailyActiveTasks(ctx context.Context) ([]storage.Task, error) {
	var tasks []storage.Task
	for _, task := range f.tasks {
		if task.DailyActive {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (f *fakeAirdrop) SetTaskDaily(ctx context.Context, customID string, daily bool) (bool, error) {
	task, ok := f.tasks[customID]
	if !ok || task.DailyActive == daily {
		return false, nil
	}
	task.DailyActive = daily
	return true, nil
}

func (f *fakeAirdrop) DeleteTask(ctx context.Context, customID string) (bool, error) {
	if _, ok := f.tasks[customID]; !ok {
		return false, nil
	}
	delete(f.tasks, customID)
	return true, nil
}

func (f *fakeAirdrop) CompletedTaskIDs(ctx context.Context, telegramID int64) ([]string, error) {
	var ids []string
	for id := range f.completed[telegramID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeAirdrop) CompleteTask(ctx context.Context, telegramID int64, customID string) error {
	if f.completed[telegramID] == nil {
		f.completed[telegramID] = map[string]bool{}
	}
	f.completed[telegramID][customID] = true
	return nil
}

func (f *fakeAirdrop) UserRewardPoints(ctx context.Context, telegramID int64) (int64, error) {
	var total int64
	for id := range f.completed[telegramID] {
		if task, ok := f.tasks[id]; ok {
			total += task.RewardPoints
		}
	}
	return total, nil
}
