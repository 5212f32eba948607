package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// MemoryStore keeps tickets, steps, logs and users in process memory.
// It backs development runs without POSTGRES_DSN and the test suites.
type MemoryStore struct {
	mu           sync.Mutex
	tickets      map[int64]*domain.Ticket
	steps        map[int64][]domain.StepAnswer
	logs         map[int64][]domain.LogEntry
	users        map[int64]*domain.User
	nextTicketID int64
	nextLogID    int64
	now          func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets: make(map[int64]*domain.Ticket),
		steps:   make(map[int64][]domain.StepAnswer),
		logs:    make(map[int64][]domain.LogEntry),
		users:   make(map[int64]*domain.User),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for created and log timestamps.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SeedTicket inserts a ticket as-is, keeping its number. Intended for tests.
func (s *MemoryStore) SeedTicket(ticket domain.Ticket) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTicketID++
	ticket.ID = s.nextTicketID
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.now()
	}
	s.tickets[ticket.ID] = &ticket
	copied := ticket
	return &copied
}

// Tickets returns the TicketRepository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return &memoryTicketRepository{s: s} }

// Logs returns the LogRepository view of the store.
func (s *MemoryStore) Logs() LogRepository { return &memoryLogRepository{s: s} }

// Users returns the UserRepository view of the store.
func (s *MemoryStore) Users() UserRepository { return &memoryUserRepository{s: s} }

type memoryTicketRepository struct {
	s *MemoryStore
}

func (r *memoryTicketRepository) MaxNumber(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.maxNumberLocked(), nil
}

func (s *MemoryStore) maxNumberLocked() int64 {
	var max int64
	for _, t := range s.tickets {
		if t.Number > max {
			max = t.Number
		}
	}
	return max
}

func (r *memoryTicketRepository) CreateWithSteps(ctx context.Context, ticket *domain.Ticket, steps []domain.StepAnswer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.tickets {
		if t.UserID == ticket.UserID && t.Status == domain.TicketStatusOpen {
			return ErrOpenTicketExists
		}
	}
	number := domain.NextTicketNumber(r.s.maxNumberLocked())
	for _, t := range r.s.tickets {
		if t.Number == number {
			return ErrNumberTaken
		}
	}

	r.s.nextTicketID++
	ticket.ID = r.s.nextTicketID
	ticket.Number = number
	ticket.Status = domain.TicketStatusOpen
	ticket.ThreadID = nil
	ticket.ClosedAt = nil
	ticket.CreatedAt = r.s.now()

	stored := *ticket
	r.s.tickets[ticket.ID] = &stored

	copied := make([]domain.StepAnswer, len(steps))
	for i := range steps {
		steps[i].TicketID = ticket.ID
		copied[i] = steps[i]
	}
	r.s.steps[ticket.ID] = copied
	return nil
}

func (r *memoryTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.find(func(t *domain.Ticket) bool { return t.ID == id })
}

func (r *memoryTicketRepository) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	return r.find(func(t *domain.Ticket) bool { return t.Number == number })
}

func (r *memoryTicketRepository) FindOpenByUser(ctx context.Context, userID int64) (*domain.Ticket, error) {
	return r.find(func(t *domain.Ticket) bool {
		return t.UserID == userID && t.Status == domain.TicketStatusOpen
	})
}

func (r *memoryTicketRepository) FindByThread(ctx context.Context, threadID int64, openOnly bool) (*domain.Ticket, error) {
	return r.find(func(t *domain.Ticket) bool {
		if t.ThreadID == nil || *t.ThreadID != threadID {
			return false
		}
		return !openOnly || t.Status == domain.TicketStatusOpen
	})
}

// find returns a copy of the matching ticket with the highest id.
func (r *memoryTicketRepository) find(match func(*domain.Ticket) bool) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *domain.Ticket
	for _, t := range r.s.tickets {
		if match(t) && (found == nil || t.ID > found.ID) {
			found = t
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return copyTicket(found), nil
}

func (r *memoryTicketRepository) BindThread(ctx context.Context, id, threadID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	thread := threadID
	t.ThreadID = &thread
	return nil
}

func (r *memoryTicketRepository) Close(ctx context.Context, id int64, status domain.TicketStatus, closedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.Status != domain.TicketStatusOpen {
		return false, nil
	}
	t.Status = status
	at := closedAt
	t.ClosedAt = &at
	return true, nil
}

func (r *memoryTicketRepository) ListSteps(ctx context.Context, ticketID int64) ([]domain.StepAnswer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	steps := append([]domain.StepAnswer(nil), r.s.steps[ticketID]...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Index < steps[j].Index })
	return steps, nil
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	copied := *t
	if t.ThreadID != nil {
		thread := *t.ThreadID
		copied.ThreadID = &thread
	}
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		copied.ClosedAt = &at
	}
	return &copied
}

type memoryLogRepository struct {
	s *MemoryStore
}

func (r *memoryLogRepository) Append(ctx context.Context, entry *domain.LogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return ErrNotFound
	}

	ts := r.s.now()
	entries := r.s.logs[entry.TicketID]
	if n := len(entries); n > 0 && ts.Before(entries[n-1].CreatedAt) {
		ts = entries[n-1].CreatedAt
	}
	r.s.nextLogID++
	entry.ID = r.s.nextLogID
	entry.CreatedAt = ts
	r.s.logs[entry.TicketID] = append(entries, *entry)
	return nil
}

func (r *memoryLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.LogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.LogEntry(nil), r.s.logs[ticketID]...), nil
}

func (r *memoryLogRepository) ListRecent(ctx context.Context, ticketID int64, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 15
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := r.s.logs[ticketID]
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]domain.LogEntry(nil), entries...), nil
}

type memoryUserRepository struct {
	s *MemoryStore
}

func (r *memoryUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	if existing, ok := r.s.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepository) Language(ctx context.Context, id int64) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user, ok := r.s.users[id]; ok && user.Language != "" {
		return user.Language, nil
	}
	return domain.DefaultLanguage, nil
}
