package models

import "time"

// ShoppingList is a named list of items owned by a chat. Name is unique
// within the chat's collection.
type ShoppingList struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Total returns the sum of every item's quantity times unit price.
func (l *ShoppingList) Total() float64 {
	var total float64
	for _, item := range l.Items {
		total += item.Total()
	}
	return total
}

// Item is one entry in a shopping list. Expiry is a dd/mm/yyyy string, or
// empty when no expiry is tracked.
type Item struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Expiry    string  `json:"expiry,omitempty"`
	Purchased bool    `json:"purchased"`
}

// Total returns quantity times unit price.
func (i Item) Total() float64 {
	return i.Quantity * i.UnitPrice
}

// HistoryEntry is an append-only snapshot of an item at the moment it was
// marked as purchased.
type HistoryEntry struct {
	ListName    string    `json:"list_name"`
	Item        Item      `json:"item"`
	PurchasedAt time.Time `json:"purchased_at"`
}
