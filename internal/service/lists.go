package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kerhoff/ShopListBot/internal/models"
)

// GetLists returns every shopping list of the chat in creation order.
func (s *Service) GetLists(ctx context.Context, chatID int64) ([]models.ShoppingList, error) {
	lists, err := s.Lists.Load(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lists (chat_id=%d): %w", chatID, err)
	}
	return lists, nil
}

// GetList returns the list called name.
func (s *Service) GetList(ctx context.Context, chatID int64, name string) (*models.ShoppingList, error) {
	lists, err := s.GetLists(ctx, chatID)
	if err != nil {
		return nil, err
	}
	idx := findList(lists, name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrListNotFound, name)
	}
	return &lists[idx], nil
}

// CreateList appends a new empty list. Blank and duplicate names are rejected.
func (s *Service) CreateList(ctx context.Context, chatID int64, name string) (*models.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyListName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.GetLists(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if findList(lists, name) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrListExists, name)
	}

	list := models.ShoppingList{Name: name, Items: []models.Item{}}
	lists = append(lists, list)
	if err := s.Lists.Save(ctx, chatID, lists); err != nil {
		return nil, fmt.Errorf("failed to create list %q: %w", name, err)
	}

	s.logger.Infof("Created shopping list %q (chat_id=%d)", name, chatID)
	return &list, nil
}

// RenameList changes a list's name, keeping its items.
func (s *Service) RenameList(ctx context.Context, chatID int64, oldName, newName string) (*models.ShoppingList, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, ErrEmptyListName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.GetLists(ctx, chatID)
	if err != nil {
		return nil, err
	}
	idx := findList(lists, oldName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrListNotFound, oldName)
	}
	if other := findList(lists, newName); other >= 0 && other != idx {
		return nil, fmt.Errorf("%w: %q", ErrListExists, newName)
	}

	lists[idx].Name = newName
	if err := s.Lists.Save(ctx, chatID, lists); err != nil {
		return nil, fmt.Errorf("failed to rename list %q: %w", oldName, err)
	}

	s.logger.Infof("Renamed shopping list %q to %q (chat_id=%d)", oldName, newName, chatID)
	return &lists[idx], nil
}

// DeleteList removes a list and its items. Reminders already queued for its
// items are not withdrawn.
func (s *Service) DeleteList(ctx context.Context, chatID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.GetLists(ctx, chatID)
	if err != nil {
		return err
	}
	idx := findList(lists, name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrListNotFound, name)
	}

	lists = append(lists[:idx], lists[idx+1:]...)
	if err := s.Lists.Save(ctx, chatID, lists); err != nil {
		return fmt.Errorf("failed to delete list %q: %w", name, err)
	}

	s.logger.Infof("Deleted shopping list %q (chat_id=%d)", name, chatID)
	return nil
}

func findList(lists []models.ShoppingList, name string) int {
	name = strings.TrimSpace(name)
	for i := range lists {
		if lists[i].Name == name {
			return i
		}
	}
	return -1
}
