package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/api"
	"github.com/Kerhoff/ShopListBot/internal/config"
	"github.com/Kerhoff/ShopListBot/internal/notify"
	"github.com/Kerhoff/ShopListBot/internal/reminder"
	"github.com/Kerhoff/ShopListBot/internal/repository/kv"
	"github.com/Kerhoff/ShopListBot/internal/repository/sqlstore"
	"github.com/Kerhoff/ShopListBot/internal/service"
)

var fixedNow = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := config.NewDatabase("sqlite", filepath.Join(t.TempDir(), "api.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	clock := func() time.Time { return fixedNow }
	store := sqlstore.NewKeyValueStore(db.DB, db.Dialect)
	reminders := sqlstore.NewReminderRepository(db.DB, db.Dialect)
	scheduler := reminder.NewScheduler(notify.NewQueueNotifier(reminders, clock), notify.DeviceFlag(true), logger)

	svc := service.New(logger, kv.NewListRepository(store), kv.NewHistoryRepository(store), reminders, scheduler, time.UTC)
	svc.SetClock(clock)

	ts := httptest.NewServer(api.NewServer(svc, logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func TestRequiresChatID(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodGet, "/api/lists", "")
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, ts, http.MethodGet, "/api/lists?chat_id=abc", "")
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestListEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/api/lists?chat_id=7", `{"name":"Groceries"}`)
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, ts, http.MethodPost, "/api/lists?chat_id=7", `{"name":"Groceries"}`)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, ts, http.MethodPost, "/api/lists?chat_id=7", `{"name":"  "}`)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, ts, http.MethodPut, "/api/lists/Groceries?chat_id=7", `{"name":"Weekly"}`)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, ts, http.MethodGet, "/api/lists?chat_id=7", "")
	expectStatus(t, resp, http.StatusOK)
	var lists []struct {
		Name string `json:"name"`
	}
	decode(t, resp, &lists)
	if len(lists) != 1 || lists[0].Name != "Weekly" {
		t.Errorf("Expected one list named Weekly, got %+v", lists)
	}

	// Lists are scoped per chat.
	resp = do(t, ts, http.MethodGet, "/api/lists?chat_id=8", "")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &lists)
	if len(lists) != 0 {
		t.Errorf("Expected no lists for another chat, got %d", len(lists))
	}

	resp = do(t, ts, http.MethodDelete, "/api/lists/Weekly?chat_id=7", "")
	expectStatus(t, resp, http.StatusNoContent)

	resp = do(t, ts, http.MethodDelete, "/api/lists/Weekly?chat_id=7", "")
	expectStatus(t, resp, http.StatusNotFound)
}

func TestItemEndpoints(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, do(t, ts, http.MethodPost, "/api/lists?chat_id=7", `{"name":"Fridge"}`), http.StatusCreated)

	t.Run("AddSchedulesReminder", func(t *testing.T) {
		resp := do(t, ts, http.MethodPost, "/api/lists/Fridge/items?chat_id=7",
			`{"name":"Milk","expiry":"21102026","quantity":"2","price":"1,50"}`)
		expectStatus(t, resp, http.StatusCreated)

		var body struct {
			Item struct {
				Index     int     `json:"index"`
				Expiry    string  `json:"expiry"`
				UnitPrice float64 `json:"unit_price"`
				Status    string  `json:"status"`
				Total     float64 `json:"total"`
			} `json:"item"`
			Reminder struct {
				Scheduled bool  `json:"scheduled"`
				DelaySecs int64 `json:"delay_seconds"`
			} `json:"reminder"`
		}
		decode(t, resp, &body)

		if body.Item.Index != 0 {
			t.Errorf("Expected index 0, got %d", body.Item.Index)
		}
		if body.Item.Expiry != "21/10/2026" {
			t.Errorf("Expected masked expiry 21/10/2026, got %q", body.Item.Expiry)
		}
		if body.Item.UnitPrice != 1.5 || body.Item.Total != 3 {
			t.Errorf("Expected unit price 1.5 and total 3, got %v and %v", body.Item.UnitPrice, body.Item.Total)
		}
		if body.Item.Status != "2 days left" {
			t.Errorf("Expected status %q, got %q", "2 days left", body.Item.Status)
		}
		if !body.Reminder.Scheduled {
			t.Fatal("Expected a reminder to be scheduled")
		}
		want := int64((2*24*time.Hour + 11*time.Hour + 59*time.Minute + 59*time.Second) / time.Second)
		if body.Reminder.DelaySecs != want {
			t.Errorf("Expected delay %d seconds, got %d", want, body.Reminder.DelaySecs)
		}
	})

	t.Run("AddRejectsInvalidDate", func(t *testing.T) {
		resp := do(t, ts, http.MethodPost, "/api/lists/Fridge/items?chat_id=7", `{"name":"Eggs","expiry":"31022026"}`)
		expectStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("AddRequiresName", func(t *testing.T) {
		resp := do(t, ts, http.MethodPost, "/api/lists/Fridge/items?chat_id=7", `{"price":"2"}`)
		expectStatus(t, resp, http.StatusBadRequest)

		resp = do(t, ts, http.MethodPost, "/api/lists/Fridge/items?chat_id=7", `{"name":"`+strings.Repeat("x", 201)+`"}`)
		expectStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("AddWithoutExpiry", func(t *testing.T) {
		resp := do(t, ts, http.MethodPost, "/api/lists/Fridge/items?chat_id=7", `{"name":"Salt"}`)
		expectStatus(t, resp, http.StatusCreated)

		var body struct {
			Reminder struct {
				Scheduled bool   `json:"scheduled"`
				Reason    string `json:"reason"`
			} `json:"reminder"`
		}
		decode(t, resp, &body)
		if body.Reminder.Scheduled || body.Reminder.Reason != string(reminder.SkipNoExpiry) {
			t.Errorf("Expected skip reason %q, got %+v", reminder.SkipNoExpiry, body.Reminder)
		}
	})

	t.Run("UnknownList", func(t *testing.T) {
		resp := do(t, ts, http.MethodPost, "/api/lists/Nope/items?chat_id=7", `{"name":"Tea"}`)
		expectStatus(t, resp, http.StatusNotFound)
	})

	t.Run("TogglePurchasedRecordsHistory", func(t *testing.T) {
		resp := do(t, ts, http.MethodPut, "/api/lists/Fridge/items/0/purchased?chat_id=7", "")
		expectStatus(t, resp, http.StatusOK)

		resp = do(t, ts, http.MethodGet, "/api/history?chat_id=7", "")
		expectStatus(t, resp, http.StatusOK)
		var history []struct {
			ListName string `json:"list_name"`
			Item     struct {
				Name string `json:"name"`
			} `json:"item"`
		}
		decode(t, resp, &history)
		if len(history) != 1 || history[0].Item.Name != "Milk" || history[0].ListName != "Fridge" {
			t.Errorf("Expected one Milk purchase from Fridge, got %+v", history)
		}
	})

	t.Run("Share", func(t *testing.T) {
		resp := do(t, ts, http.MethodGet, "/api/lists/Fridge/share?chat_id=7", "")
		expectStatus(t, resp, http.StatusOK)
		body, _ := io.ReadAll(resp.Body)
		want := "List: Fridge\n\nMilk (2) - 21/10/2026\nSalt (1) - No expiry"
		if string(body) != want {
			t.Errorf("Expected share text %q, got %q", want, body)
		}
	})

	t.Run("EditAndRemove", func(t *testing.T) {
		resp := do(t, ts, http.MethodPut, "/api/lists/Fridge/items/1?chat_id=7", `{"name":"Sea salt","quantity":"3"}`)
		expectStatus(t, resp, http.StatusOK)

		resp = do(t, ts, http.MethodPut, "/api/lists/Fridge/items/9?chat_id=7", `{"name":"Ghost"}`)
		expectStatus(t, resp, http.StatusNotFound)

		resp = do(t, ts, http.MethodDelete, "/api/lists/Fridge/items/1?chat_id=7", "")
		expectStatus(t, resp, http.StatusNoContent)

		resp = do(t, ts, http.MethodGet, "/api/lists/Fridge/items?chat_id=7", "")
		expectStatus(t, resp, http.StatusOK)
		var items []struct {
			Name string `json:"name"`
		}
		decode(t, resp, &items)
		if len(items) != 1 || items[0].Name != "Milk" {
			t.Errorf("Expected only Milk left, got %+v", items)
		}
	})

	t.Run("RemindersQueued", func(t *testing.T) {
		resp := do(t, ts, http.MethodGet, "/api/reminders?chat_id=7", "")
		expectStatus(t, resp, http.StatusOK)
		var reminders []struct {
			Title string `json:"title"`
		}
		decode(t, resp, &reminders)
		if len(reminders) != 1 || reminders[0].Title != reminder.Title {
			t.Errorf("Expected one queued reminder, got %+v", reminders)
		}
	})

	t.Run("RescheduleSkipsPurchased", func(t *testing.T) {
		resp := do(t, ts, http.MethodPost, "/api/lists/Fridge/reminders?chat_id=7", "")
		expectStatus(t, resp, http.StatusOK)
		var results []struct {
			Item      string `json:"item"`
			Scheduled bool   `json:"scheduled"`
			Reason    string `json:"reason"`
		}
		decode(t, resp, &results)
		if len(results) != 1 || results[0].Scheduled || results[0].Reason != string(reminder.SkipPurchased) {
			t.Errorf("Expected purchased Milk to be skipped, got %+v", results)
		}
	})
}

func TestCheckDate(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		value   string
		valid   bool
		status  string
		expired bool
	}{
		{value: "", valid: true, status: "No expiry"},
		{value: "19102026", valid: true, status: "Expired", expired: true},
		{value: "21102026", valid: true, status: "2 days left"},
		{value: "29102026", valid: true, status: "Expires in 10 days"},
		{value: "31022026", valid: false},
		{value: "2110", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			resp := do(t, ts, http.MethodGet, "/api/dates/check?value="+tt.value, "")
			expectStatus(t, resp, http.StatusOK)

			var body struct {
				Valid   bool   `json:"valid"`
				Status  string `json:"status"`
				Expired bool   `json:"expired"`
			}
			decode(t, resp, &body)

			if body.Valid != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, body.Valid)
			}
			if body.Status != tt.status || body.Expired != tt.expired {
				t.Errorf("Expected status %q expired=%v, got %q expired=%v", tt.status, tt.expired, body.Status, body.Expired)
			}
		})
	}
}
