package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Kerhoff/ShopListBot/internal/models"
)

// ShareText renders a list as plain text suitable for forwarding.
func ShareText(list *models.ShoppingList) string {
	lines := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		expires := item.Expiry
		if expires == "" {
			expires = "No expiry"
		}
		lines = append(lines, fmt.Sprintf("%s (%s) - %s", item.Name, FormatQuantity(item.Quantity), expires))
	}
	return fmt.Sprintf("List: %s\n\n%s", list.Name, strings.Join(lines, "\n"))
}

// FormatQuantity prints q without trailing zeros, defaulting to 1.
func FormatQuantity(q float64) string {
	if q <= 0 {
		q = 1
	}
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// FormatPrice prints v with two decimals.
func FormatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// GetHistory returns the chat's purchase history, oldest first.
func (s *Service) GetHistory(ctx context.Context, chatID int64) ([]models.HistoryEntry, error) {
	entries, err := s.History.Load(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history (chat_id=%d): %w", chatID, err)
	}
	return entries, nil
}
