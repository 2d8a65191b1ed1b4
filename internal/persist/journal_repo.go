package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Entry is one journaled message.
type Entry struct {
	Machine string
	Frame   uint64
	SimTime float64
	Type    string
	Source  string
	About   string
	Sending string
	Params  []byte // JSON object
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteBatch inserts entries in a single transaction. Either all of them
// are stored or none are.
func (r *JournalRepo) WriteBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO message_journal (machine, frame, sim_time, msg_type, source, about_id, sending_id, params)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)`,
			e.Machine, int64(e.Frame), e.SimTime, e.Type, e.Source, e.About, e.Sending, string(e.Params),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return tx.Commit(ctx)
}

// CountForFrame returns how many messages were journaled for a machine's
// frame.
func (r *JournalRepo) CountForFrame(ctx context.Context, machine string, frame uint64) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM message_journal WHERE machine = $1 AND frame = $2`,
		machine, int64(frame),
	).Scan(&n)
	return n, err
}
