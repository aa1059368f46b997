// Package cache publishes table action records to Redis for the historian.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// HistoryLimit caps the per-table replay list.
const HistoryLimit = 500

// HistoryTTL is how long an idle table's replay list is kept.
const HistoryTTL = 24 * time.Hour

// ActionRecord is one logged table action.
type ActionRecord struct {
	TableID     uuid.UUID              `json:"tableId"`
	GameID      uuid.UUID              `json:"gameId"`
	Variant     string                 `json:"variant"`
	ActionIndex int                    `json:"actionIndex"`
	ActionType  string                 `json:"actionType"`
	Source      string                 `json:"source,omitempty"` // click, dwell, key
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"` // unix millis
}

// ActionsChannel is the pub/sub channel carrying a table's actions.
func ActionsChannel(tableID uuid.UUID) string {
	return fmt.Sprintf("acesup:table:%s:actions", tableID)
}

// HistoryKey is the list holding a table's most recent actions.
func HistoryKey(tableID uuid.UUID) string {
	return fmt.Sprintf("acesup:table:%s:history", tableID)
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Historian publishes action records and keeps a short replay list per table.
type Historian struct {
	rdb redis.UniversalClient
}

// NewHistorian wraps an existing client.
func NewHistorian(rdb redis.UniversalClient) *Historian {
	return &Historian{rdb: rdb}
}

// PublishAction fans rec out to subscribers and appends it to the table's
// replay list.
func (h *Historian) PublishAction(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action %d: %w", rec.ActionIndex, err)
	}
	key := HistoryKey(rec.TableID)
	_, err = h.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Publish(ctx, ActionsChannel(rec.TableID), data)
		p.RPush(ctx, key, data)
		p.LTrim(ctx, key, -HistoryLimit, -1)
		p.Expire(ctx, key, HistoryTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish action %d for table %s: %w", rec.ActionIndex, rec.TableID, err)
	}
	return nil
}

// History returns up to limit of the table's most recent actions, oldest first.
func (h *Historian) History(ctx context.Context, tableID uuid.UUID, limit int) ([]ActionRecord, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	raw, err := h.rdb.LRange(ctx, HistoryKey(tableID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history for table %s: %w", tableID, err)
	}
	out := make([]ActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec ActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
