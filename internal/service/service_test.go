package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/expiry"
	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/notify"
	"github.com/Kerhoff/ShopListBot/internal/reminder"
	"github.com/Kerhoff/ShopListBot/internal/repository/kv"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type failingHistory struct{}

func (failingHistory) Load(context.Context, int64) ([]models.HistoryEntry, error) { return nil, nil }

func (failingHistory) Append(context.Context, int64, models.HistoryEntry) error {
	return errors.New("history unavailable")
}

type memReminders struct {
	rows   []*models.Reminder
	nextID int64
}

func (m *memReminders) Create(_ context.Context, r *models.Reminder) (*models.Reminder, error) {
	m.nextID++
	r.ID = m.nextID
	r.Active = true
	m.rows = append(m.rows, r)
	return r, nil
}

func (m *memReminders) GetByChatID(_ context.Context, chatID int64) ([]*models.Reminder, error) {
	var out []*models.Reminder
	for _, r := range m.rows {
		if r.ChatID == chatID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReminders) GetDue(_ context.Context, now time.Time) ([]*models.Reminder, error) {
	var out []*models.Reminder
	for _, r := range m.rows {
		if r.IsDue(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out, nil
}

func (m *memReminders) MarkSent(_ context.Context, id int64, sentAt time.Time) error {
	for _, r := range m.rows {
		if r.ID == id {
			r.Active = false
			r.SentAt = &sentAt
			return nil
		}
	}
	return errors.New("not found")
}

type fixture struct {
	svc       *Service
	reminders *memReminders
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		reminders: &memReminders{},
		clock:     time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.clock }

	store := &mapStore{data: map[string]string{}}
	scheduler := reminder.NewScheduler(notify.NewQueueNotifier(f.reminders, clock), notify.DeviceFlag(true), logger)

	f.svc = New(logger, kv.NewListRepository(store), kv.NewHistoryRepository(store), f.reminders, scheduler, time.UTC)
	f.svc.SetClock(clock)
	return f
}

const chat int64 = 100

func TestListLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateList(ctx, chat, "  "); !errors.Is(err, ErrEmptyListName) {
		t.Errorf("Expected ErrEmptyListName, got %v", err)
	}

	if _, err := f.svc.CreateList(ctx, chat, "Weekly"); err != nil {
		t.Fatalf("CreateList returned error: %v", err)
	}
	if _, err := f.svc.CreateList(ctx, chat, "Party"); err != nil {
		t.Fatalf("CreateList returned error: %v", err)
	}
	if _, err := f.svc.CreateList(ctx, chat, "Weekly"); !errors.Is(err, ErrListExists) {
		t.Errorf("Expected ErrListExists, got %v", err)
	}

	if _, err := f.svc.RenameList(ctx, chat, "Party", "Weekly"); !errors.Is(err, ErrListExists) {
		t.Errorf("Expected ErrListExists on rename collision, got %v", err)
	}
	if _, err := f.svc.RenameList(ctx, chat, "Party", "Barbecue"); err != nil {
		t.Fatalf("RenameList returned error: %v", err)
	}
	if _, err := f.svc.RenameList(ctx, chat, "Missing", "Other"); !errors.Is(err, ErrListNotFound) {
		t.Errorf("Expected ErrListNotFound, got %v", err)
	}

	lists, err := f.svc.GetLists(ctx, chat)
	if err != nil {
		t.Fatalf("GetLists returned error: %v", err)
	}
	if len(lists) != 2 || lists[0].Name != "Weekly" || lists[1].Name != "Barbecue" {
		t.Errorf("Unexpected lists %+v", lists)
	}

	if err := f.svc.DeleteList(ctx, chat, "Weekly"); err != nil {
		t.Fatalf("DeleteList returned error: %v", err)
	}
	if _, err := f.svc.GetList(ctx, chat, "Weekly"); !errors.Is(err, ErrListNotFound) {
		t.Errorf("Expected deleted list to be gone, got %v", err)
	}
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.CreateList(ctx, chat, "Weekly")

	t.Run("Defaults", func(t *testing.T) {
		item, res, err := f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Salt"})
		if err != nil {
			t.Fatalf("AddItem returned error: %v", err)
		}
		if item.Quantity != 1 || item.UnitPrice != 0 || item.Expiry != "" || item.Purchased {
			t.Errorf("Unexpected defaults %+v", item)
		}
		if res.Scheduled || res.Reason != reminder.SkipNoExpiry {
			t.Errorf("Expected no reminder, got %+v", res)
		}
	})

	t.Run("CommaPriceAndMaskedDate", func(t *testing.T) {
		item, _, err := f.svc.AddItem(ctx, chat, "Weekly", ItemInput{
			Name: "Cheese", Expiry: "30122026", Quantity: "2", Price: "12,50",
		})
		if err != nil {
			t.Fatalf("AddItem returned error: %v", err)
		}
		if item.UnitPrice != 12.5 || item.Quantity != 2 || item.Expiry != "30/12/2026" {
			t.Errorf("Unexpected item %+v", item)
		}
	})

	t.Run("ExpiringSoonSchedulesReminder", func(t *testing.T) {
		date := expiry.Format(f.clock.AddDate(0, 0, 2))
		_, res, err := f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Milk", Expiry: date})
		if err != nil {
			t.Fatalf("AddItem returned error: %v", err)
		}
		if !res.Scheduled {
			t.Fatalf("Expected a reminder, got %+v", res)
		}
		if len(f.reminders.rows) != 1 {
			t.Fatalf("Expected one queued reminder, got %d", len(f.reminders.rows))
		}
		queued := f.reminders.rows[0]
		if !strings.Contains(queued.Text, "Milk") || !strings.Contains(queued.Text, date) {
			t.Errorf("Unexpected reminder text %q", queued.Text)
		}
		end, _ := expiry.EndOfDay(date, time.UTC)
		if d := end.Sub(queued.RemindAt); d < 0 || d >= time.Second {
			t.Errorf("RemindAt = %v, want about %v", queued.RemindAt, end)
		}
	})

	t.Run("InvalidDate", func(t *testing.T) {
		_, _, err := f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Eggs", Expiry: "31/02/2026"})
		if !errors.Is(err, expiry.ErrInvalidDateFormat) {
			t.Errorf("Expected ErrInvalidDateFormat, got %v", err)
		}
		_, _, err = f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Eggs", Expiry: "soon"})
		if !errors.Is(err, expiry.ErrInvalidDateFormat) {
			t.Errorf("Expected ErrInvalidDateFormat for text without digits, got %v", err)
		}
	})

	t.Run("InvalidPrice", func(t *testing.T) {
		for _, price := range []string{"cheap", "NaN", "nan", "Inf", "-Inf", "infinity"} {
			_, _, err := f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Eggs", Price: price})
			if !errors.Is(err, ErrInvalidPrice) {
				t.Errorf("Expected ErrInvalidPrice for %q, got %v", price, err)
			}
		}
	})

	t.Run("EmptyName", func(t *testing.T) {
		_, _, err := f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: " "})
		if !errors.Is(err, ErrEmptyItemName) {
			t.Errorf("Expected ErrEmptyItemName, got %v", err)
		}
	})

	t.Run("UnknownList", func(t *testing.T) {
		_, _, err := f.svc.AddItem(ctx, chat, "Nope", ItemInput{Name: "Eggs"})
		if !errors.Is(err, ErrListNotFound) {
			t.Errorf("Expected ErrListNotFound, got %v", err)
		}
	})

	list, _ := f.svc.GetList(ctx, chat, "Weekly")
	if len(list.Items) != 3 {
		t.Errorf("Expected 3 saved items, got %d", len(list.Items))
	}
}

func TestEditItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.CreateList(ctx, chat, "Weekly")
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Milk", Price: "3"})
	f.svc.TogglePurchased(ctx, chat, "Weekly", 0)

	item, _, err := f.svc.EditItem(ctx, chat, "Weekly", 0, ItemInput{Name: "Oat milk", Quantity: "x", Price: "bad"})
	if err != nil {
		t.Fatalf("EditItem returned error: %v", err)
	}
	if item.Name != "Oat milk" || item.Quantity != 1 || item.UnitPrice != 0 || !item.Purchased {
		t.Errorf("Unexpected edited item %+v", item)
	}

	item, _, err = f.svc.EditItem(ctx, chat, "Weekly", 0, ItemInput{Name: "Oat milk", Quantity: "NaN", Price: "Inf"})
	if err != nil {
		t.Fatalf("EditItem with non-finite numbers returned error: %v", err)
	}
	if item.Quantity != 1 || item.UnitPrice != 0 {
		t.Errorf("Expected non-finite quantity and price to fall back to 1 and 0, got %+v", item)
	}

	if _, _, err := f.svc.EditItem(ctx, chat, "Weekly", 5, ItemInput{Name: "x"}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
	if _, _, err := f.svc.EditItem(ctx, chat, "Weekly", 0, ItemInput{Name: "x", Expiry: "31/04/2026"}); !errors.Is(err, expiry.ErrInvalidDateFormat) {
		t.Errorf("Expected ErrInvalidDateFormat, got %v", err)
	}
}

func TestTogglePurchasedRecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.CreateList(ctx, chat, "Weekly")
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Bread"})

	item, err := f.svc.TogglePurchased(ctx, chat, "Weekly", 0)
	if err != nil {
		t.Fatalf("TogglePurchased returned error: %v", err)
	}
	if !item.Purchased {
		t.Error("Expected item to be purchased")
	}

	item, _ = f.svc.TogglePurchased(ctx, chat, "Weekly", 0)
	if item.Purchased {
		t.Error("Expected second toggle to clear purchased")
	}

	history, err := f.svc.GetHistory(ctx, chat)
	if err != nil {
		t.Fatalf("GetHistory returned error: %v", err)
	}
	if len(history) != 1 || history[0].Item.Name != "Bread" || history[0].ListName != "Weekly" {
		t.Errorf("Expected a single history snapshot, got %+v", history)
	}
	if !history[0].Item.Purchased {
		t.Error("Expected snapshot to record the purchased state")
	}
}

func TestTogglePurchasedConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.CreateList(ctx, chat, "Weekly")

	const n = 20
	for i := 0; i < n; i++ {
		f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: fmt.Sprintf("item%d", i)})
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if _, err := f.svc.TogglePurchased(ctx, chat, "Weekly", index); err != nil {
				t.Errorf("TogglePurchased(%d) returned error: %v", index, err)
			}
		}(i)
	}
	wg.Wait()

	history, err := f.svc.GetHistory(ctx, chat)
	if err != nil {
		t.Fatalf("GetHistory returned error: %v", err)
	}
	if len(history) != n {
		t.Errorf("Expected %d history entries, got %d", n, len(history))
	}

	list, _ := f.svc.GetList(ctx, chat, "Weekly")
	for _, item := range list.Items {
		if !item.Purchased {
			t.Errorf("Expected %s to be purchased", item.Name)
		}
	}
}

func TestTogglePurchasedRestoresFlagOnHistoryError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.History = failingHistory{}
	f.svc.CreateList(ctx, chat, "Weekly")
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Bread"})

	if _, err := f.svc.TogglePurchased(ctx, chat, "Weekly", 0); err == nil {
		t.Fatal("Expected an error when history cannot be written")
	}

	list, _ := f.svc.GetList(ctx, chat, "Weekly")
	if list.Items[0].Purchased {
		t.Error("Expected purchased flag to be restored after the history error")
	}
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.CreateList(ctx, chat, "Weekly")
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "A"})
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "B"})

	removed, err := f.svc.RemoveItem(ctx, chat, "Weekly", 0)
	if err != nil {
		t.Fatalf("RemoveItem returned error: %v", err)
	}
	if removed.Name != "A" {
		t.Errorf("Removed %q, want A", removed.Name)
	}

	list, _ := f.svc.GetList(ctx, chat, "Weekly")
	if len(list.Items) != 1 || list.Items[0].Name != "B" {
		t.Errorf("Unexpected remaining items %+v", list.Items)
	}

	if _, err := f.svc.RemoveItem(ctx, chat, "Weekly", -1); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestRescheduleList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.CreateList(ctx, chat, "Weekly")

	soon := expiry.Format(f.clock.AddDate(0, 0, 1))
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Ham", Expiry: soon})
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Rice", Expiry: expiry.Format(f.clock.AddDate(0, 0, 30))})

	results, err := f.svc.RescheduleList(ctx, chat, "Weekly")
	if err != nil {
		t.Fatalf("RescheduleList returned error: %v", err)
	}
	if len(results) != 2 || !results[0].Scheduled || results[1].Scheduled {
		t.Errorf("Unexpected results %+v", results)
	}
	// One reminder from AddItem and one from the reschedule; duplicates are not collapsed.
	if len(f.reminders.rows) != 2 {
		t.Errorf("Expected 2 queued reminders, got %d", len(f.reminders.rows))
	}
}

func TestDispatchDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.CreateList(ctx, chat, "Weekly")
	f.svc.AddItem(ctx, chat, "Weekly", ItemInput{Name: "Ham", Expiry: expiry.Format(f.clock.AddDate(0, 0, 1))})

	var delivered []string
	callback := func(chatID int64, text string) error {
		if chatID != chat {
			t.Errorf("Unexpected chat %d", chatID)
		}
		delivered = append(delivered, text)
		return nil
	}

	if err := f.svc.DispatchDue(ctx, callback); err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}
	if len(delivered) != 0 {
		t.Fatalf("Expected nothing due yet, got %v", delivered)
	}

	f.clock = f.clock.AddDate(0, 0, 2)
	if err := f.svc.DispatchDue(ctx, callback); err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}
	if len(delivered) != 1 || !strings.Contains(delivered[0], "Ham") {
		t.Fatalf("Expected the Ham reminder, got %v", delivered)
	}

	if err := f.svc.DispatchDue(ctx, callback); err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}
	if len(delivered) != 1 {
		t.Errorf("Expected reminder to fire once, got %d deliveries", len(delivered))
	}
}

func TestDispatchDueCollectsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reminders.Create(ctx, &models.Reminder{ChatID: 1, Title: "t", Text: "a", RemindAt: f.clock})
	f.reminders.Create(ctx, &models.Reminder{ChatID: 2, Title: "t", Text: "b", RemindAt: f.clock})

	calls := 0
	err := f.svc.DispatchDue(ctx, func(int64, string) error {
		calls++
		return errors.New("chat not found")
	})
	if err == nil {
		t.Fatal("Expected aggregated error")
	}
	if calls != 2 {
		t.Errorf("Expected both reminders attempted, got %d", calls)
	}
	if pending, _ := f.reminders.GetDue(ctx, f.clock); len(pending) != 0 {
		t.Errorf("Expected failed reminders to be marked sent, %d still due", len(pending))
	}
}

func TestShareText(t *testing.T) {
	list := &models.ShoppingList{
		Name: "Weekly",
		Items: []models.Item{
			{Name: "Milk", Quantity: 2, Expiry: "21/10/2026"},
			{Name: "Salt", Quantity: 1.5},
		},
	}

	want := "List: Weekly\n\nMilk (2) - 21/10/2026\nSalt (1.5) - No expiry"
	if got := ShareText(list); got != want {
		t.Errorf("ShareText() = %q, want %q", got, want)
	}
}

func TestItemStatus(t *testing.T) {
	f := newFixture(t)

	if st := f.svc.ItemStatus(models.Item{Expiry: expiry.Format(f.clock)}); !st.IsExpired() {
		t.Errorf("Expected item expiring today to be expired, got %+v", st)
	}
	if st := f.svc.ItemStatus(models.Item{Expiry: "99/99/9999"}); st.Kind != expiry.KindNoExpiry {
		t.Errorf("Expected corrupt date to fall back to no expiry, got %+v", st)
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(16.25); got != "16.25" {
		t.Errorf("FormatPrice = %q", got)
	}
	if got := FormatQuantity(0); got != "1" {
		t.Errorf("FormatQuantity(0) = %q, want 1", got)
	}
}
