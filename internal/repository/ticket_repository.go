package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrOpenTicketExists is returned when the user already owns an open ticket.
	ErrOpenTicketExists = errors.New("user already has an open ticket")
	// ErrNumberTaken is returned when an allocated number collides with an existing ticket.
	ErrNumberTaken = errors.New("ticket number already in use")
)

// ticketNumberLockKey serializes number allocation across processes.
const ticketNumberLockKey int64 = 0x5449434b4554 // "TICKET"

const (
	uniqueViolation     = "23505"
	openPerUserIndex    = "tickets_one_open_per_user"
	ticketNumberKeyName = "tickets_number_key"
)

// TicketRepository encapsulates ticket and intake step persistence.
type TicketRepository interface {
	MaxNumber(ctx context.Context) (int64, error)
	// CreateWithSteps allocates the next number, re-checks the one-open-ticket rule and
	// inserts the ticket with its steps as one unit.
	CreateWithSteps(ctx context.Context, ticket *domain.Ticket, steps []domain.StepAnswer) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	FindOpenByUser(ctx context.Context, userID int64) (*domain.Ticket, error)
	FindByThread(ctx context.Context, threadID int64, openOnly bool) (*domain.Ticket, error)
	BindThread(ctx context.Context, id, threadID int64) error
	// Close moves an open ticket to status. It reports false when the ticket was not open.
	Close(ctx context.Context, id int64, status domain.TicketStatus, closedAt time.Time) (bool, error)
	ListSteps(ctx context.Context, ticketID int64) ([]domain.StepAnswer, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, user_id, subject, status, thread_id, created_at, closed_at`

func (r *ticketRepository) MaxNumber(ctx context.Context) (int64, error) {
	var max int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) FROM tickets`).Scan(&max)
	return max, err
}

func (r *ticketRepository) CreateWithSteps(ctx context.Context, ticket *domain.Ticket, steps []domain.StepAnswer) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ticketNumberLockKey); err != nil {
		return fmt.Errorf("lock ticket numbers: %w", err)
	}

	var existing int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM tickets WHERE user_id=$1 AND status='open' LIMIT 1`, ticket.UserID,
	).Scan(&existing)
	switch {
	case err == nil:
		return ErrOpenTicketExists
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var max int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) FROM tickets`).Scan(&max); err != nil {
		return err
	}
	ticket.Number = domain.NextTicketNumber(max)
	ticket.Status = domain.TicketStatusOpen

	const insertTicket = `
        INSERT INTO tickets (number, user_id, subject, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertTicket,
		ticket.Number,
		ticket.UserID,
		ticket.Subject,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt); err != nil {
		return mapUniqueViolation(err)
	}

	batch := &pgx.Batch{}
	for i := range steps {
		steps[i].TicketID = ticket.ID
		batch.Queue(`INSERT INTO steps (ticket_id, idx, text, media_ref, media_kind) VALUES ($1,$2,$3,$4,$5)`,
			ticket.ID,
			steps[i].Index,
			steps[i].Text,
			nullString(steps[i].MediaRef),
			nullString(string(steps[i].MediaKind)),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert steps: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE number=$1`, number)
}

func (r *ticketRepository) FindOpenByUser(ctx context.Context, userID int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE user_id=$1 AND status='open'`, userID)
}

func (r *ticketRepository) FindByThread(ctx context.Context, threadID int64, openOnly bool) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE thread_id=$1`
	if openOnly {
		query += ` AND status='open'`
	}
	query += ` ORDER BY id DESC LIMIT 1`
	return r.fetchSingle(ctx, query, threadID)
}

func (r *ticketRepository) BindThread(ctx context.Context, id, threadID int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET thread_id=$1 WHERE id=$2`, threadID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Close(ctx context.Context, id int64, status domain.TicketStatus, closedAt time.Time) (bool, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status=$1, closed_at=$2 WHERE id=$3 AND status='open'`,
		status, closedAt, id)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *ticketRepository) ListSteps(ctx context.Context, ticketID int64) ([]domain.StepAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ticket_id, idx, text, media_ref, media_kind FROM steps WHERE ticket_id=$1 ORDER BY idx ASC`,
		ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StepAnswer
	for rows.Next() {
		var (
			step      domain.StepAnswer
			mediaRef  *string
			mediaKind *string
		)
		if err := rows.Scan(&step.TicketID, &step.Index, &step.Text, &mediaRef, &mediaKind); err != nil {
			return nil, err
		}
		step.MediaRef = derefString(mediaRef)
		step.MediaKind = domain.MediaKind(derefString(mediaKind))
		result = append(result, step)
	}
	return result, rows.Err()
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.UserID,
		&ticket.Subject,
		&ticket.Status,
		&ticket.ThreadID,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case openPerUserIndex:
		return ErrOpenTicketExists
	case ticketNumberKeyName:
		return ErrNumberTaken
	}
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
