package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *PostgresStorage) EnsureUser(ctx context.Context, telegramID int64) (created bool, err error) {
	const query = `
        INSERT INTO users (telegram_id, created_at)
        VALUES ($1, $2)
        ON CONFLICT (telegram_id) DO NOTHING
    `

	res, err := s.db.ExecContext(ctx, query, telegramID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to ensure user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count inserted users: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStorage) UserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	const query = `SELECT * FROM users WHERE telegram_id = $1`

	var user User
	err := s.db.GetContext(ctx, &user, query, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStorage) SetUserWallet(ctx context.Context, telegramID int64, wallet string) error {
	const query = `UPDATE users SET wallet = $1 WHERE telegram_id = $2`

	res, err := s.db.ExecContext(ctx, query, wallet, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set user wallet: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated users: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) CreateTask(ctx context.Context, task Task) error {
	const query = `
        INSERT INTO tasks (custom_id, type, description, reward_points, daily_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	_, err := s.db.ExecContext(ctx, query,
		task.CustomID,
		task.Type,
		task.Description,
		task.RewardPoints,
		task.DailyActive,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *PostgresStorage) TaskByCustomID(ctx context.Context, customID string) (*Task, error) {
	const query = `SELECT * FROM tasks WHERE custom_id = $1`

	var task Task
	err := s.db.GetContext(ctx, &task, query, customID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (s *PostgresStorage) TaskByType(ctx context.Context, taskType string) (*Task, error) {
	const query = `SELECT * FROM tasks WHERE type = $1 ORDER BY created_at LIMIT 1`

	var task Task
	err := s.db.GetContext(ctx, &task, query, taskType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task by type: %w", err)
	}
	return &task, nil
}

func (s *PostgresStorage) DailyActiveTasks(ctx context.Context) ([]Task, error) {
	const query = `SELECT * FROM tasks WHERE daily_active = TRUE ORDER BY created_at`

	var tasks []Task
	if err := s.db.SelectContext(ctx, &tasks, query); err != nil {
		return nil, fmt.Errorf("failed to get daily tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStorage) SetTaskDaily(ctx context.Context, customID string, daily bool) (bool, error) {
	const query = `UPDATE tasks SET daily_active = $1 WHERE custom_id = $2 AND daily_active <> $1`

	res, err := s.db.ExecContext(ctx, query, daily, customID)
	if err != nil {
		return false, fmt.Errorf("failed to set task daily flag: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count updated tasks: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStorage) DeleteTask(ctx context.Context, customID string) (bool, error) {
	const query = `DELETE FROM tasks WHERE custom_id = $1`

	res, err := s.db.ExecContext(ctx, query, customID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted tasks: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStorage) CompletedTaskIDs(ctx context.Context, telegramID int64) ([]string, error) {
	const query = `SELECT task_custom_id FROM task_completions WHERE telegram_id = $1`

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query, telegramID); err != nil {
		return nil, fmt.Errorf("failed to get completed tasks: %w", err)
	}
	return ids, nil
}

func (s *PostgresStorage) CompleteTask(ctx context.Context, telegramID int64, customID string) error {
	const query = `
        INSERT INTO task_completions (telegram_id, task_custom_id, completed_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (telegram_id, task_custom_id) DO NOTHING
    `

	if _, err := s.db.ExecContext(ctx, query, telegramID, customID, time.Now()); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

func (s *PostgresStorage) UserRewardPoints(ctx context.Context, telegramID int64) (int64, error) {
	const query = `
        SELECT COALESCE(SUM(t.reward_points), 0)
        FROM task_completions c
        JOIN tasks t ON t.custom_id = c.task_custom_id
        WHERE c.telegram_id = $1
    `

	var total int64
	if err := s.db.GetContext(ctx, &total, query, telegramID); err != nil {
		return 0, fmt.Errorf("failed to sum reward points: %w", err)
	}
	return total, nil
}
