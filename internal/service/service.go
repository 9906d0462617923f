package service

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShopListBot/internal/reminder"
	"github.com/Kerhoff/ShopListBot/internal/repository"
)

var (
	ErrListNotFound  = errors.New("shopping list not found")
	ErrListExists    = errors.New("a shopping list with this name already exists")
	ErrEmptyListName = errors.New("list name must not be empty")
	ErrEmptyItemName = errors.New("item name must not be empty")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrItemNotFound  = errors.New("item not found")
)

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the bot and the HTTP API.
type Service struct {
	logger    *logrus.Logger
	Lists     repository.ListRepository
	History   repository.HistoryRepository
	Reminders repository.ReminderRepository
	Scheduler *reminder.Scheduler

	location *time.Location
	now      func() time.Time

	// mu serialises read-modify-write cycles on list documents.
	mu sync.Mutex
}

// New creates a new Service with all required dependencies. Dates are
// interpreted in loc.
func New(logger *logrus.Logger,
	lists repository.ListRepository,
	history repository.HistoryRepository,
	reminders repository.ReminderRepository,
	scheduler *reminder.Scheduler,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		logger:    logger,
		Lists:     lists,
		History:   history,
		Reminders: reminders,
		Scheduler: scheduler,
		location:  loc,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the current time in the service's location.
func (s *Service) Now() time.Time {
	return s.now().In(s.location)
}
