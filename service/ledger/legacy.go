package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// legacyRecord is the wire shape of the old per-thread store. It predates
// the canonical model: flat fields, `state` instead of `status`, unix
// millisecond timestamps, and a `processed` state that the canonical
// model does not have.
type legacyRecord struct {
	ID        string  `json:"id"`
	ThreadID  string  `json:"threadId"`
	Kind      string  `json:"kind"`
	Direction string  `json:"direction"`
	Token     string  `json:"token"`
	Chain     string  `json:"chain"`
	Amount    float64 `json:"amount"`
	State     string  `json:"state"`
	Hash      string  `json:"hash"`
	CreatedAt int64   `json:"createdAt"`
}

// fromLegacy translates a legacy record into the canonical shape.
// Only `tx` records survive the translation; requests and other legacy
// kinds are dropped from the merged view. Legacy `processed` is not yet
// terminal and maps to pending.
func fromLegacy(lr legacyRecord) (TransferRecord, bool) {
	if lr.Kind != string(KindTx) {
		return TransferRecord{}, false
	}

	status := Status(lr.State)
	if lr.State == "processed" {
		status = StatusPending
	}

	return TransferRecord{
		ID:        lr.ID,
		ThreadID:  lr.ThreadID,
		Kind:      KindTx,
		Direction: Direction(lr.Direction),
		TokenID:   lr.Token,
		Chain:     lr.Chain,
		Amount:    lr.Amount,
		Status:    status,
		TxHash:    lr.Hash,
		Timestamp: time.UnixMilli(lr.CreatedAt).UTC(),
	}, true
}

func toLegacy(rec TransferRecord) legacyRecord {
	return legacyRecord{
		ID:        rec.ID,
		ThreadID:  rec.ThreadID,
		Kind:      string(rec.Kind),
		Direction: string(rec.Direction),
		Token:     rec.TokenID,
		Chain:     rec.Chain,
		Amount:    rec.Amount,
		State:     string(rec.Status),
		Hash:      rec.TxHash,
		CreatedAt: rec.Timestamp.UnixMilli(),
	}
}

// LegacyStore reads and writes legacy-shaped records in Redis. Each
// thread's records live in one hash keyed by record id, plus a small
// id -> thread index so status patches don't have to scan.
type LegacyStore struct {
	client *redis.Client
	logger *slog.Logger
}

const legacyIndexKey = "legacy:thread-index"

// NewLegacyStore wraps an existing Redis client.
func NewLegacyStore(client *redis.Client, logger *slog.Logger) *LegacyStore {
	return &LegacyStore{client: client, logger: logger}
}

func threadKey(threadID string) string {
	return fmt.Sprintf("thread:%s:records", threadID)
}

// GetAll returns the translated records for a thread, or for all threads
// when threadID is empty. Records that fail to decode are skipped with a
// warning; one corrupt entry must not hide the rest of the thread.
func (s *LegacyStore) GetAll(ctx context.Context, threadID string) ([]TransferRecord, error) {
	keys := []string{threadKey(threadID)}
	if threadID == "" {
		var err error
		keys, err = s.scanThreadKeys(ctx)
		if err != nil {
			return nil, err
		}
	}

	var out []TransferRecord
	for _, key := range keys {
		entries, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read legacy records %s: %w", key, err)
		}
		for id, raw := range entries {
			var lr legacyRecord
			if err := json.Unmarshal([]byte(raw), &lr); err != nil {
				s.logger.Warn("skipping corrupt legacy record", "key", key, "id", id, "error", err)
				continue
			}
			if rec, ok := fromLegacy(lr); ok {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// Upsert writes a record in the legacy shape and maintains the id index.
func (s *LegacyStore) Upsert(ctx context.Context, rec TransferRecord) error {
	encoded, err := json.Marshal(toLegacy(rec))
	if err != nil {
		return fmt.Errorf("failed to encode legacy record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, threadKey(rec.ThreadID), rec.ID, encoded)
	pipe.HSet(ctx, legacyIndexKey, rec.ID, rec.ThreadID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write legacy record %s: %w", rec.ID, err)
	}
	return nil
}

// PatchStatus updates the state of a record wherever its thread lives.
// Unknown ids are a no-op: the legacy store is patched best-effort.
func (s *LegacyStore) PatchStatus(ctx context.Context, id string, status Status) error {
	thread, err := s.client.HGet(ctx, legacyIndexKey, id).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up legacy record %s: %w", id, err)
	}

	key := threadKey(thread)
	raw, err := s.client.HGet(ctx, key, id).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read legacy record %s: %w", id, err)
	}

	var lr legacyRecord
	if err := json.Unmarshal([]byte(raw), &lr); err != nil {
		return fmt.Errorf("corrupt legacy record %s: %w", id, err)
	}
	lr.State = string(status)

	encoded, err := json.Marshal(lr)
	if err != nil {
		return fmt.Errorf("failed to encode legacy record: %w", err)
	}
	if err := s.client.HSet(ctx, key, id, encoded).Err(); err != nil {
		return fmt.Errorf("failed to patch legacy record %s: %w", id, err)
	}
	return nil
}

func (s *LegacyStore) scanThreadKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, "thread:*:records", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan legacy threads: %w", err)
	}
	return keys, nil
}
