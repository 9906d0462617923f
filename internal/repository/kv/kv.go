// Package kv stores shopping lists and purchase history as JSON documents in
// a repository.KeyValueStore, one document per chat.
package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/repository"
)

// ListsKey returns the key holding a chat's list collection.
func ListsKey(chatID int64) string { return fmt.Sprintf("@lists:%d", chatID) }

// HistoryKey returns the key holding a chat's purchase history.
func HistoryKey(chatID int64) string { return fmt.Sprintf("@history:%d", chatID) }

type listRepository struct {
	store repository.KeyValueStore
}

// NewListRepository creates a list repository over store
func NewListRepository(store repository.KeyValueStore) repository.ListRepository {
	return &listRepository{store: store}
}

func (r *listRepository) Load(ctx context.Context, chatID int64) ([]models.ShoppingList, error) {
	var lists []models.ShoppingList
	if err := loadJSON(ctx, r.store, ListsKey(chatID), &lists); err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	return lists, nil
}

func (r *listRepository) Save(ctx context.Context, chatID int64, lists []models.ShoppingList) error {
	if lists == nil {
		lists = []models.ShoppingList{}
	}
	if err := saveJSON(ctx, r.store, ListsKey(chatID), lists); err != nil {
		return fmt.Errorf("failed to save lists: %w", err)
	}
	return nil
}

type historyRepository struct {
	store repository.KeyValueStore
}

// NewHistoryRepository creates a history repository over store
func NewHistoryRepository(store repository.KeyValueStore) repository.HistoryRepository {
	return &historyRepository{store: store}
}

func (r *historyRepository) Load(ctx context.Context, chatID int64) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if err := loadJSON(ctx, r.store, HistoryKey(chatID), &entries); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

// Append is a read-modify-write of the chat's history document.
func (r *historyRepository) Append(ctx context.Context, chatID int64, entry models.HistoryEntry) error {
	entries, err := r.Load(ctx, chatID)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if err := saveJSON(ctx, r.store, HistoryKey(chatID), entries); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func loadJSON(ctx context.Context, store repository.KeyValueStore, key string, dst any) error {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func saveJSON(ctx context.Context, store repository.KeyValueStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Set(ctx, key, string(data))
}
