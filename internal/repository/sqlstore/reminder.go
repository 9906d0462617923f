package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/repository"
)

type reminderRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *sql.DB, dialect Dialect) repository.ReminderRepository {
	return &reminderRepository{db: db, dialect: dialect}
}

const reminderColumns = `id, chat_id, title, text, remind_at, active, sent_at, created_at`

func (r *reminderRepository) Create(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	query := r.dialect.rebind(`
		INSERT INTO reminders (chat_id, title, text, remind_at, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	reminder.CreatedAt = time.Now().UTC().Truncate(time.Second)
	reminder.RemindAt = reminder.RemindAt.UTC().Truncate(time.Second)
	reminder.Active = true

	err := r.db.QueryRowContext(ctx, query,
		reminder.ChatID,
		reminder.Title,
		reminder.Text,
		reminder.RemindAt,
		reminder.Active,
		reminder.CreatedAt,
	).Scan(&reminder.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	return reminder, nil
}

func (r *reminderRepository) GetByChatID(ctx context.Context, chatID int64) ([]*models.Reminder, error) {
	query := r.dialect.rebind(`
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE chat_id = ? AND active = ?
		ORDER BY remind_at ASC`)

	rows, err := r.db.QueryContext(ctx, query, chatID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders by chat ID: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (r *reminderRepository) GetDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	query := r.dialect.rebind(`
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE active = ? AND remind_at <= ?
		ORDER BY remind_at ASC`)

	rows, err := r.db.QueryContext(ctx, query, true, now.UTC().Truncate(time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (r *reminderRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := r.dialect.rebind(`
		UPDATE reminders
		SET active = ?, sent_at = ?
		WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, false, sentAt.UTC().Truncate(time.Second), id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder as sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reminder with ID %d not found", id)
	}

	return nil
}

func scanReminders(rows *sql.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(
			&reminder.ID,
			&reminder.ChatID,
			&reminder.Title,
			&reminder.Text,
			&reminder.RemindAt,
			&reminder.Active,
			&reminder.SentAt,
			&reminder.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	return reminders, rows.Err()
}
