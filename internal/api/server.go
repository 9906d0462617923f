package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/expiry"
	"github.com/Kerhoff/ShopListBot/internal/models"
	"github.com/Kerhoff/ShopListBot/internal/reminder"
	"github.com/Kerhoff/ShopListBot/internal/service"
)

// Server provides the HTTP API over the shopping list service.
type Server struct {
	svc      *service.Service
	logger   *logrus.Logger
	validate *validator.Validate
	mux      *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Lists
	s.mux.HandleFunc("GET /api/lists", s.handleGetLists)
	s.mux.HandleFunc("POST /api/lists", s.handleCreateList)
	s.mux.HandleFunc("PUT /api/lists/{name}", s.handleRenameList)
	s.mux.HandleFunc("DELETE /api/lists/{name}", s.handleDeleteList)
	s.mux.HandleFunc("GET /api/lists/{name}/share", s.handleShareList)

	// API – Items
	s.mux.HandleFunc("GET /api/lists/{name}/items", s.handleGetItems)
	s.mux.HandleFunc("POST /api/lists/{name}/items", s.handleAddItem)
	s.mux.HandleFunc("PUT /api/lists/{name}/items/{index}", s.handleEditItem)
	s.mux.HandleFunc("DELETE /api/lists/{name}/items/{index}", s.handleRemoveItem)
	s.mux.HandleFunc("PUT /api/lists/{name}/items/{index}/purchased", s.handleTogglePurchased)

	// API – Reminders and history
	s.mux.HandleFunc("POST /api/lists/{name}/reminders", s.handleRescheduleList)
	s.mux.HandleFunc("GET /api/reminders", s.handleGetReminders)
	s.mux.HandleFunc("GET /api/history", s.handleGetHistory)

	// API – Dates
	s.mux.HandleFunc("GET /api/dates/check", s.handleCheckDate)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto status codes. Unknown errors
// are logged and reported as 500 with the generic message.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, service.ErrListNotFound), errors.Is(err, service.ErrItemNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrListExists):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyListName),
		errors.Is(err, service.ErrEmptyItemName),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, expiry.ErrInvalidDateFormat):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithError(err).Error(message)
		s.respondError(w, http.StatusInternalServerError, message)
	}
}

// decodeJSON reads the request body into dst and validates its struct tags.
// It returns an error message on failure.  The caller should return
// immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return false, fmt.Sprintf("invalid request: %v", err)
	}
	return true, ""
}

// pathIndex extracts the {index} path value as a 0-based item index.
func pathIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	if raw == "" {
		return 0, fmt.Errorf("missing index in path")
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", raw)
	}
	return index, nil
}

// requireChatID reads the chat_id query parameter.  It writes an error
// response and returns 0 when the parameter is absent or invalid.
func (s *Server) requireChatID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("chat_id")
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, "chat_id query parameter is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "chat_id must be an integer")
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

type itemView struct {
	Index int `json:"index"`
	models.Item
	Status   string  `json:"status"`
	Expired  bool    `json:"expired"`
	DaysLeft int     `json:"days_left"`
	Total    float64 `json:"total"`
}

type listView struct {
	Name  string     `json:"name"`
	Items []itemView `json:"items"`
	Total float64    `json:"total"`
}

type reminderView struct {
	Item      string `json:"item"`
	Scheduled bool   `json:"scheduled"`
	RequestID string `json:"request_id,omitempty"`
	DelaySecs int64  `json:"delay_seconds,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) newItemView(index int, item models.Item) itemView {
	st := s.svc.ItemStatus(item)
	return itemView{
		Index:    index,
		Item:     item,
		Status:   st.String(),
		Expired:  st.IsExpired(),
		DaysLeft: st.DaysLeft,
		Total:    item.Total(),
	}
}

func (s *Server) newListView(list *models.ShoppingList) listView {
	items := make([]itemView, 0, len(list.Items))
	for i, item := range list.Items {
		items = append(items, s.newItemView(i, item))
	}
	return listView{Name: list.Name, Items: items, Total: list.Total()}
}

func newReminderView(res reminder.Result) reminderView {
	v := reminderView{
		Item:      res.ItemName,
		Scheduled: res.Scheduled,
		RequestID: res.RequestID,
		DelaySecs: int64(res.Delay / time.Second),
		Reason:    string(res.Reason),
	}
	if res.Err != nil {
		v.Error = res.Err.Error()
	}
	return v
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

type listNameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (s *Server) handleGetLists(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	lists, err := s.svc.GetLists(r.Context(), chatID)
	if err != nil {
		s.respondServiceError(w, err, "failed to get lists")
		return
	}

	views := make([]listView, 0, len(lists))
	for i := range lists {
		views = append(views, s.newListView(&lists[i]))
	}
	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	var req listNameRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	list, err := s.svc.CreateList(r.Context(), chatID, req.Name)
	if err != nil {
		s.respondServiceError(w, err, "failed to create list")
		return
	}

	s.respondJSON(w, http.StatusCreated, s.newListView(list))
}

func (s *Server) handleRenameList(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	var req listNameRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	list, err := s.svc.RenameList(r.Context(), chatID, r.PathValue("name"), req.Name)
	if err != nil {
		s.respondServiceError(w, err, "failed to rename list")
		return
	}

	s.respondJSON(w, http.StatusOK, s.newListView(list))
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	if err := s.svc.DeleteList(r.Context(), chatID, r.PathValue("name")); err != nil {
		s.respondServiceError(w, err, "failed to delete list")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleShareList(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	list, err := s.svc.GetList(r.Context(), chatID, r.PathValue("name"))
	if err != nil {
		s.respondServiceError(w, err, "failed to get list")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(service.ShareText(list))); err != nil {
		s.logger.WithError(err).Error("failed to write share text")
	}
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemResponse struct {
	Item     itemView     `json:"item"`
	Reminder reminderView `json:"reminder"`
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	list, err := s.svc.GetList(r.Context(), chatID, r.PathValue("name"))
	if err != nil {
		s.respondServiceError(w, err, "failed to get items")
		return
	}

	s.respondJSON(w, http.StatusOK, s.newListView(list).Items)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	var req service.ItemInput
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	name := r.PathValue("name")
	item, res, err := s.svc.AddItem(r.Context(), chatID, name, req)
	if err != nil {
		s.respondServiceError(w, err, "failed to add item")
		return
	}

	// The item was appended, so it sits at the end of the list.
	index := -1
	if list, err := s.svc.GetList(r.Context(), chatID, name); err == nil {
		index = len(list.Items) - 1
	}

	s.respondJSON(w, http.StatusCreated, itemResponse{
		Item:     s.newItemView(index, item),
		Reminder: newReminderView(res),
	})
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	index, err := pathIndex(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item index")
		return
	}

	var req service.ItemInput
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, res, err := s.svc.EditItem(r.Context(), chatID, r.PathValue("name"), index, req)
	if err != nil {
		s.respondServiceError(w, err, "failed to edit item")
		return
	}

	s.respondJSON(w, http.StatusOK, itemResponse{
		Item:     s.newItemView(index, item),
		Reminder: newReminderView(res),
	})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	index, err := pathIndex(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item index")
		return
	}

	if _, err := s.svc.RemoveItem(r.Context(), chatID, r.PathValue("name"), index); err != nil {
		s.respondServiceError(w, err, "failed to remove item")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleTogglePurchased(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	index, err := pathIndex(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item index")
		return
	}

	item, err := s.svc.TogglePurchased(r.Context(), chatID, r.PathValue("name"), index)
	if err != nil {
		s.respondServiceError(w, err, "failed to toggle item")
		return
	}

	s.respondJSON(w, http.StatusOK, s.newItemView(index, item))
}

// ---------------------------------------------------------------------------
// Reminders and history
// ---------------------------------------------------------------------------

func (s *Server) handleRescheduleList(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	results, err := s.svc.RescheduleList(r.Context(), chatID, r.PathValue("name"))
	if err != nil {
		s.respondServiceError(w, err, "failed to reschedule reminders")
		return
	}

	views := make([]reminderView, 0, len(results))
	for _, res := range results {
		views = append(views, newReminderView(res))
	}
	s.respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetReminders(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	reminders, err := s.svc.Reminders.GetByChatID(r.Context(), chatID)
	if err != nil {
		s.logger.WithError(err).Error("failed to get reminders")
		s.respondError(w, http.StatusInternalServerError, "failed to get reminders")
		return
	}
	if reminders == nil {
		reminders = []*models.Reminder{}
	}

	s.respondJSON(w, http.StatusOK, reminders)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	chatID, ok := s.requireChatID(w, r)
	if !ok {
		return
	}

	entries, err := s.svc.GetHistory(r.Context(), chatID)
	if err != nil {
		s.respondServiceError(w, err, "failed to get history")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	s.respondJSON(w, http.StatusOK, entries)
}

// ---------------------------------------------------------------------------
// Dates
// ---------------------------------------------------------------------------

type dateCheckResponse struct {
	Value    string `json:"value"`
	Valid    bool   `json:"valid"`
	Status   string `json:"status,omitempty"`
	Expired  bool   `json:"expired"`
	DaysLeft int    `json:"days_left"`
}

// handleCheckDate masks the value like typed input and classifies it. An
// empty value is valid and means no expiry.
func (s *Server) handleCheckDate(w http.ResponseWriter, r *http.Request) {
	masked := expiry.Mask(strings.TrimSpace(r.URL.Query().Get("value")))
	resp := dateCheckResponse{Value: masked, Valid: expiry.Validate(masked)}

	if resp.Valid {
		st, err := expiry.Classify(masked, s.svc.Now())
		if err != nil {
			s.respondServiceError(w, err, "failed to classify date")
			return
		}
		resp.Status = st.String()
		resp.Expired = st.IsExpired()
		resp.DaysLeft = st.DaysLeft
	}

	s.respondJSON(w, http.StatusOK, resp)
}
