package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filemarket-bot/internal/storage"
)

// walletConnectTaskType marks the task auto-completed when a user links a wallet.
const walletConnectTaskType = "WALLET_CONNECT"

func (b *Bot) handleTasks(ctx context.Context, chatID, userID int64) {
	tasks, err := b.airdrop.DailyActiveTasks(ctx)
	if err != nil {
		b.logger.Error("Failed to fetch daily tasks", zap.Error(err))
		b.sendError(chatID, "An error occurred while fetching tasks. Please try again later.")
		return
	}

	if len(tasks) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "No daily tasks available at the moment. Please check back later!"))
		return
	}

	completed, err := b.airdrop.CompletedTaskIDs(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to fetch completed tasks",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while fetching tasks. Please try again later.")
		return
	}

	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	var sb strings.Builder
	sb.WriteString("✨ Daily Tasks ✨\n\n")
	for _, task := range tasks {
		icon := "☑️"
		if done[task.CustomID] {
			icon = "✅"
		}
		fmt.Fprintf(&sb, "%s %s - %d points (ID: %s)\n", icon, task.Description, task.RewardPoints, task.CustomID)
	}

	b.send(tgbotapi.NewMessage(chatID, sb.String()))
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	customID := strings.TrimSpace(msg.CommandArguments())
	if customID == "" {
		b.send(tgbotapi.NewMessage(chatID, "Usage: /complete <task id>"))
		return
	}

	task, err := b.airdrop.TaskByCustomID(ctx, customID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.sendError(chatID, fmt.Sprintf("Invalid task ID: %s. Check the ID from the /tasks list.", customID))
			return
		}
		b.logger.Error("Failed to look up task",
			zap.String("custom_id", customID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while completing the task. Please try again later.")
		return
	}

	completed, err := b.airdrop.CompletedTaskIDs(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to fetch completed tasks",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while completing the task. Please try again later.")
		return
	}
	for _, id := range completed {
		if id == customID {
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Task %q is already marked as complete.", task.Description)))
			return
		}
	}

	if _, err := b.airdrop.EnsureUser(ctx, userID); err != nil {
		b.logger.Error("Failed to ensure user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while completing the task. Please try again later.")
		return
	}

	if err := b.airdrop.CompleteTask(ctx, userID, customID); err != nil {
		b.logger.Error("Failed to complete task",
			zap.Int64("user_id", userID),
			zap.String("custom_id", customID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while completing the task. Please try again later.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Task %q marked as complete!", task.Description)))
}

func (b *Bot) handleMyRewards(ctx context.Context, chatID, userID int64) {
	if _, err := b.airdrop.UserByTelegramID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.send(tgbotapi.NewMessage(chatID, "Please type /start first to initialize your profile."))
			return
		}
		b.logger.Error("Failed to look up user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while fetching your rewards. Please try again later.")
		return
	}

	points, err := b.airdrop.UserRewardPoints(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to sum reward points",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while fetching your rewards. Please try again later.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"You have accumulated %d reward points so far! Stay tuned for airdrop distribution details.", points)))
}

func (b *Bot) handleConnectWallet(ctx context.Context, chatID, userID int64) {
	if _, err := b.airdrop.EnsureUser(ctx, userID); err != nil {
		b.logger.Error("Failed to ensure user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred. Please try again later.")
		return
	}

	if err := b.flags.SetWalletPrompt(ctx, userID); err != nil {
		b.logger.Error("Failed to set wallet prompt flag",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred. Please try again later.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, "Please reply with your Ethereum wallet address starting with 0x..."))
}

func (b *Bot) handleWalletReply(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if !isHexAddress(text) {
		b.send(tgbotapi.NewMessage(chatID,
			"The provided address looks invalid. Please send a valid Ethereum address starting with 0x."))
		return
	}

	if err := b.airdrop.SetUserWallet(ctx, userID, text); err != nil {
		b.logger.Error("Failed to save wallet",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while saving your wallet. Please try again.")
		return
	}

	if err := b.flags.ClearWalletPrompt(ctx, userID); err != nil {
		b.logger.Error("Failed to clear wallet prompt flag",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Wallet address %s received and saved.", text)))

	b.completeWalletTask(ctx, chatID, userID)
}

// completeWalletTask auto-completes the wallet-connect task, if one exists.
func (b *Bot) completeWalletTask(ctx context.Context, chatID, userID int64) {
	task, err := b.airdrop.TaskByType(ctx, walletConnectTaskType)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Error("Failed to look up wallet-connect task", zap.Error(err))
		}
		return
	}

	completed, err := b.airdrop.CompletedTaskIDs(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to fetch completed tasks",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	for _, id := range completed {
		if id == task.CustomID {
			return
		}
	}

	if err := b.airdrop.CompleteTask(ctx, userID, task.CustomID); err != nil {
		b.logger.Error("Failed to auto-complete wallet task",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Your %q task is now marked as complete!", task.Description)))
}

func (b *Bot) handleAddTask(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if !b.isAdmin(userID) {
		b.sendError(chatID, "This command is for admins only.")
		return
	}

	const usage = "Usage: /addtask <TYPE> <points> <true|false for daily> <description>"

	args := strings.Fields(msg.CommandArguments())
	if len(args) < 4 {
		b.send(tgbotapi.NewMessage(chatID, usage))
		return
	}

	taskType := strings.ToUpper(args[0])

	points, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || points <= 0 {
		b.sendError(chatID, "Invalid reward points. Provide a positive number.")
		return
	}

	daily, err := strconv.ParseBool(strings.ToLower(args[2]))
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, usage))
		return
	}

	description := strings.Join(args[3:], " ")
	customID := fmt.Sprintf("%s_%d", taskType, time.Now().UnixMilli())

	if err := b.airdrop.CreateTask(ctx, storage.Task{
		CustomID:     customID,
		Type:         taskType,
		Description:  description,
		RewardPoints: points,
		DailyActive:  daily,
	}); err != nil {
		b.logger.Error("Failed to create task",
			zap.String("custom_id", customID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while adding the task.")
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Task added successfully with ID: %s (Daily Active: %t)", customID, daily)))
}

func (b *Bot) handleSetTaskDaily(ctx context.Context, msg *tgbotapi.Message, daily bool) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if !b.isAdmin(userID) {
		b.sendError(chatID, "This command is for admins only.")
		return
	}

	customID := strings.TrimSpace(msg.CommandArguments())
	if customID == "" {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Usage: /%s <task id>", msg.Command())))
		return
	}

	changed, err := b.airdrop.SetTaskDaily(ctx, customID, daily)
	if err != nil {
		b.logger.Error("Failed to set task daily flag",
			zap.String("custom_id", customID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred. Please try again later.")
		return
	}

	if !changed {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Could not find task %s or it already had that daily setting.", customID)))
		return
	}

	if daily {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Task %s is now set as a daily task.", customID)))
	} else {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Task %s is no longer a daily task.", customID)))
	}
}

func (b *Bot) handleRemoveTask(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if !b.isAdmin(userID) {
		b.sendError(chatID, "This command is for admins only.")
		return
	}

	customID := strings.TrimSpace(msg.CommandArguments())
	if customID == "" {
		b.send(tgbotapi.NewMessage(chatID, "Usage: /removetask <task id>"))
		return
	}

	deleted, err := b.airdrop.DeleteTask(ctx, customID)
	if err != nil {
		b.logger.Error("Failed to delete task",
			zap.String("custom_id", customID),
			zap.Error(err))
		b.sendError(chatID, "An error occurred while removing the task.")
		return
	}

	if !deleted {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Task %q not found or could not be removed.", customID)))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Task %q removed successfully.", customID)))
}

// isHexAddress reports whether s is a 20-byte hex address with 0x prefix.
func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
