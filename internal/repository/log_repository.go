package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// LogRepository manages the append-only ticket chat log.
type LogRepository interface {
	// Append stores entry with a timestamp never earlier than the ticket's previous entry.
	Append(ctx context.Context, entry *domain.LogEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.LogEntry, error)
	// ListRecent returns the last limit entries, oldest first.
	ListRecent(ctx context.Context, ticketID int64, limit int) ([]domain.LogEntry, error)
}

type logRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository builds repository.
func NewLogRepository(pool *pgxpool.Pool) LogRepository {
	return &logRepository{pool: pool}
}

func (r *logRepository) Append(ctx context.Context, entry *domain.LogEntry) error {
	const query = `
        INSERT INTO logs (ticket_id, role, sender_id, sender_name, text, media_ref, media_kind, seq_ref, ts)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
                GREATEST(NOW(), COALESCE((SELECT MAX(ts) FROM logs WHERE ticket_id=$1), NOW())))
        RETURNING id, ts`
	var seqRef *int64
	if entry.MessageRef != 0 {
		seqRef = &entry.MessageRef
	}
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.Role,
		entry.SenderID,
		entry.SenderName,
		entry.Text,
		nullString(entry.MediaRef),
		nullString(string(entry.MediaKind)),
		seqRef,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *logRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.LogEntry, error) {
	const query = `
        SELECT id, ticket_id, role, sender_id, sender_name, text, media_ref, media_kind, seq_ref, ts
        FROM logs WHERE ticket_id=$1 ORDER BY ts ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

func (r *logRepository) ListRecent(ctx context.Context, ticketID int64, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 15
	}
	const query = `
        SELECT id, ticket_id, role, sender_id, sender_name, text, media_ref, media_kind, seq_ref, ts
        FROM (
            SELECT * FROM logs WHERE ticket_id=$1 ORDER BY ts DESC, id DESC LIMIT $2
        ) recent ORDER BY ts ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

func scanLogEntries(rows pgx.Rows) ([]domain.LogEntry, error) {
	var result []domain.LogEntry
	for rows.Next() {
		var (
			entry     domain.LogEntry
			mediaRef  *string
			mediaKind *string
			seqRef    *int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Role,
			&entry.SenderID,
			&entry.SenderName,
			&entry.Text,
			&mediaRef,
			&mediaKind,
			&seqRef,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.MediaRef = derefString(mediaRef)
		entry.MediaKind = domain.MediaKind(derefString(mediaKind))
		if seqRef != nil {
			entry.MessageRef = *seqRef
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
