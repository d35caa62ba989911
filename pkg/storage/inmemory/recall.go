package inmemory

import (
	"context"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loomware/memstate/pkg/storage"
)

func (d *Driver) RecordRecallEvent(ctx context.Context, ev storage.RecallEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ev.ID == "" {
		ev.ID = "rcl_" + ulid.Make().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	d.recalls = append(d.recalls, ev)
	return nil
}

func (d *Driver) GetRecallEvents(ctx context.Context, f storage.RecallEventFilter) ([]storage.RecallEvent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []storage.RecallEvent
	for _, ev := range d.recalls {
		if ev.ProjectID != f.ProjectID {
			continue
		}
		if f.ChatID != "" {
			if ev.ChatID == f.ChatID {
				out = append(out, ev)
			}
		} else if ev.MemoryID == f.MemoryID {
			out = append(out, ev)
		}
	}

	if f.ChatID != "" {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}

	limit := clampInt(f.Limit, 1, 1000)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Driver) GetRecallStats(ctx context.Context, projectID string, f storage.RecallEventFilter) (storage.RecallStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chats := make(map[string]bool)
	mems := make(map[string]bool)
	var stats storage.RecallStats
	var sum float64
	for _, ev := range d.recalls {
		if ev.ProjectID != projectID {
			continue
		}
		if f.ChatID != "" && ev.ChatID != f.ChatID {
			continue
		}
		if f.MemoryID != "" && ev.MemoryID != f.MemoryID {
			continue
		}
		stats.Count++
		chats[ev.ChatID] = true
		mems[ev.MemoryID] = true
		sum += ev.Score
		t := ev.CreatedAt
		if stats.MinTimestamp == nil || t.Before(*stats.MinTimestamp) {
			stats.MinTimestamp = &t
		}
		if stats.MaxTimestamp == nil || t.After(*stats.MaxTimestamp) {
			stats.MaxTimestamp = &t
		}
	}
	stats.DistinctChats = int64(len(chats))
	stats.DistinctSubjects = int64(len(mems))
	if stats.Count > 0 {
		stats.AvgScore = sum / float64(stats.Count)
	}
	return stats, nil
}
