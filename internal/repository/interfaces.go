package repository

import (
	"context"
	"time"

	"github.com/Kerhoff/ShopListBot/internal/models"
)

// KeyValueStore is a persistent text store with single-key atomicity
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// ListRepository defines the interface for a chat's shopping list collection
type ListRepository interface {
	Load(ctx context.Context, chatID int64) ([]models.ShoppingList, error)
	Save(ctx context.Context, chatID int64, lists []models.ShoppingList) error
}

// HistoryRepository defines the interface for the append-only purchase history
type HistoryRepository interface {
	Load(ctx context.Context, chatID int64) ([]models.HistoryEntry, error)
	Append(ctx context.Context, chatID int64, entry models.HistoryEntry) error
}

// ReminderRepository defines the interface for queued reminder operations
type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error)
	GetByChatID(ctx context.Context, chatID int64) ([]*models.Reminder, error)
	GetDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
}
