package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loomware/memstate/pkg/storage"
)

func (d *Driver) RecordRecallEvent(ctx context.Context, ev storage.RecallEvent) error {
	id := ev.ID
	if id == "" {
		id = "rcl_" + ulid.Make().String()
	}
	_, err := d.pool.Exec(ctx, `INSERT INTO memory_recall_events (id, project_id, memory_id, chat_id,
		message_index, score, request_type, model_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, COALESCE($9, now()))`,
		id, ev.ProjectID, ev.MemoryID, ev.ChatID, ev.MessageIndex, ev.Score, ev.RequestType, ev.ModelID,
		nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("postgres: record recall event: %w", err)
	}
	return nil
}

func (d *Driver) GetRecallEvents(ctx context.Context, f storage.RecallEventFilter) ([]storage.RecallEvent, error) {
	limit := clampInt(f.Limit, 1, 1000)

	var query string
	var args []any
	switch {
	case f.ChatID != "":
		query = `SELECT id, project_id, memory_id, chat_id, message_index, score, request_type, model_id, created_at
			FROM memory_recall_events WHERE project_id = $1 AND chat_id = $2 ORDER BY created_at ASC LIMIT $3`
		args = []any{f.ProjectID, f.ChatID, limit}
	default:
		query = `SELECT id, project_id, memory_id, chat_id, message_index, score, request_type, model_id, created_at
			FROM memory_recall_events WHERE project_id = $1 AND memory_id = $2 ORDER BY created_at DESC LIMIT $3`
		args = []any{f.ProjectID, f.MemoryID, limit}
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: get recall events: %w", err)
	}
	defer rows.Close()

	var out []storage.RecallEvent
	for rows.Next() {
		var e storage.RecallEvent
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.MemoryID, &e.ChatID, &e.MessageIndex, &e.Score,
			&e.RequestType, &e.ModelID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *Driver) GetRecallStats(ctx context.Context, projectID string, f storage.RecallEventFilter) (storage.RecallStats, error) {
	query := `SELECT count(*), count(DISTINCT chat_id), count(DISTINCT memory_id), COALESCE(avg(score), 0),
		min(created_at), max(created_at) FROM memory_recall_events WHERE project_id = $1`
	args := []any{projectID}
	if f.ChatID != "" {
		query += " AND chat_id = $2"
		args = append(args, f.ChatID)
	} else if f.MemoryID != "" {
		query += " AND memory_id = $2"
		args = append(args, f.MemoryID)
	}

	var s storage.RecallStats
	err := d.pool.QueryRow(ctx, query, args...).Scan(
		&s.Count, &s.DistinctChats, &s.DistinctSubjects, &s.AvgScore, &s.MinTimestamp, &s.MaxTimestamp)
	if err != nil {
		return storage.RecallStats{}, fmt.Errorf("postgres: get recall stats: %w", err)
	}
	return s, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
