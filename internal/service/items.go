package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/expiry"
	"github.com/Kerhoff/ShopListBot/internal/metrics"
	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/reminder"
)

// ItemInput is the raw, user-typed form of an item.
type ItemInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Expiry   string `json:"expiry" validate:"max=32"`
	Quantity string `json:"quantity" validate:"max=32"`
	Price    string `json:"price" validate:"max=32"`
}

// AddItem validates in, appends it to the list and then requests an expiry
// reminder for it. The reminder outcome never fails the save.
func (s *Service) AddItem(ctx context.Context, chatID int64, listName string, in ItemInput) (models.Item, reminder.Result, error) {
	item, err := parseItem(in, true)
	if err != nil {
		return models.Item{}, reminder.Result{}, err
	}

	err = s.updateList(ctx, chatID, listName, func(list *models.ShoppingList) error {
		list.Items = append(list.Items, item)
		return nil
	})
	if err != nil {
		return models.Item{}, reminder.Result{}, err
	}
	metrics.ItemsSaved.WithLabelValues("add").Inc()

	res := s.Scheduler.ScheduleIfNeeded(ctx, chatID, item, s.Now())
	return item, res, nil
}

// EditItem replaces the item at index (0-based), keeping its purchased flag,
// and requests a reminder for the new values.
func (s *Service) EditItem(ctx context.Context, chatID int64, listName string, index int, in ItemInput) (models.Item, reminder.Result, error) {
	item, err := parseItem(in, false)
	if err != nil {
		return models.Item{}, reminder.Result{}, err
	}

	err = s.updateList(ctx, chatID, listName, func(list *models.ShoppingList) error {
		if index < 0 || index >= len(list.Items) {
			return fmt.Errorf("%w: position %d", ErrItemNotFound, index+1)
		}
		item.Purchased = list.Items[index].Purchased
		list.Items[index] = item
		return nil
	})
	if err != nil {
		return models.Item{}, reminder.Result{}, err
	}
	metrics.ItemsSaved.WithLabelValues("edit").Inc()

	res := s.Scheduler.ScheduleIfNeeded(ctx, chatID, item, s.Now())
	return item, res, nil
}

// RemoveItem deletes the item at index and returns it.
func (s *Service) RemoveItem(ctx context.Context, chatID int64, listName string, index int) (models.Item, error) {
	var removed models.Item
	err := s.updateList(ctx, chatID, listName, func(list *models.ShoppingList) error {
		if index < 0 || index >= len(list.Items) {
			return fmt.Errorf("%w: position %d", ErrItemNotFound, index+1)
		}
		removed = list.Items[index]
		list.Items = append(list.Items[:index], list.Items[index+1:]...)
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}
	metrics.ItemsSaved.WithLabelValues("remove").Inc()
	return removed, nil
}

// TogglePurchased flips the purchased flag of the item at index. Marking an
// item as purchased appends a snapshot to the chat's history. The list save
// and the history append happen under the same lock, and the flag is
// restored when the append fails.
func (s *Service) TogglePurchased(ctx context.Context, chatID int64, listName string, index int) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toggled models.Item
	var resolvedName string
	flip := func(list *models.ShoppingList) error {
		if index < 0 || index >= len(list.Items) {
			return fmt.Errorf("%w: position %d", ErrItemNotFound, index+1)
		}
		list.Items[index].Purchased = !list.Items[index].Purchased
		toggled = list.Items[index]
		resolvedName = list.Name
		return nil
	}

	if err := s.updateListLocked(ctx, chatID, listName, flip); err != nil {
		return models.Item{}, err
	}
	metrics.ItemsSaved.WithLabelValues("toggle").Inc()

	if !toggled.Purchased {
		return toggled, nil
	}

	entry := models.HistoryEntry{ListName: resolvedName, Item: toggled, PurchasedAt: s.Now()}
	if err := s.History.Append(ctx, chatID, entry); err != nil {
		if rbErr := s.updateListLocked(ctx, chatID, resolvedName, flip); rbErr != nil {
			s.logger.WithFields(logrus.Fields{
				"chat_id": chatID,
				"list":    resolvedName,
				"error":   rbErr,
			}).Error("Failed to restore purchased flag after history error")
		}
		return models.Item{}, fmt.Errorf("failed to record purchase history: %w", err)
	}
	return toggled, nil
}

// RescheduleList requests reminders for every item of the list, in order.
func (s *Service) RescheduleList(ctx context.Context, chatID int64, listName string) ([]reminder.Result, error) {
	list, err := s.GetList(ctx, chatID, listName)
	if err != nil {
		return nil, err
	}
	return s.Scheduler.BulkReschedule(ctx, chatID, list.Items, s.Now()), nil
}

// ItemStatus classifies item against the current time. Items whose stored
// date cannot be parsed are reported as having no expiry.
func (s *Service) ItemStatus(item models.Item) expiry.Status {
	st, err := expiry.Classify(item.Expiry, s.Now())
	if err != nil {
		s.logger.WithField("expiry", item.Expiry).Warn("Stored expiry date is invalid")
		return expiry.Status{Kind: expiry.KindNoExpiry}
	}
	return st
}

// updateList loads the chat's lists, applies fn to the named list and saves.
func (s *Service) updateList(ctx context.Context, chatID int64, listName string, fn func(*models.ShoppingList) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateListLocked(ctx, chatID, listName, fn)
}

// updateListLocked is updateList for callers already holding s.mu.
func (s *Service) updateListLocked(ctx context.Context, chatID int64, listName string, fn func(*models.ShoppingList) error) error {
	lists, err := s.GetLists(ctx, chatID)
	if err != nil {
		return err
	}
	idx := findList(lists, listName)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrListNotFound, listName)
	}
	if err := fn(&lists[idx]); err != nil {
		return err
	}
	if err := s.Lists.Save(ctx, chatID, lists); err != nil {
		return fmt.Errorf("failed to save list %q: %w", listName, err)
	}
	return nil
}

// parseItem turns raw input into an Item. New items reject an unparsable
// price; edits fall back to zero. Quantity always falls back to one.
func parseItem(in ItemInput, strictPrice bool) (models.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Item{}, ErrEmptyItemName
	}

	date := ""
	if !expiry.IsBlank(in.Expiry) {
		date = expiry.Mask(in.Expiry)
		if date == "" || !expiry.Validate(date) {
			return models.Item{}, fmt.Errorf("%w: %q", expiry.ErrInvalidDateFormat, in.Expiry)
		}
	}

	quantity, err := parseNumber(in.Quantity)
	if err != nil || quantity <= 0 {
		quantity = 1
	}

	rawPrice := strings.TrimSpace(in.Price)
	if rawPrice == "" {
		rawPrice = "0"
	}
	price, err := parseNumber(rawPrice)
	if err != nil || price < 0 {
		if strictPrice {
			return models.Item{}, fmt.Errorf("%w: %q", ErrInvalidPrice, in.Price)
		}
		price = 0
	}

	return models.Item{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: price,
		Expiry:    date,
	}, nil
}

// parseNumber accepts both "," and "." as decimal separator. NaN and
// infinities are rejected since they cannot be stored as JSON.
func parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", raw)
	}
	return v, nil
}
