package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/medichat-api/internal/models"
)

const (
	sessionKeyPrefix = "session:"
	activeSessionSet = "sessions:active"
)

// SessionRepository keeps "last seen" activity records in Redis. Each record
// is a hash that expires after ttl; a sorted set scored by last-seen time
// makes the active population listable.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionRepository{client: client, ttl: ttl, now: time.Now}
}

// UpdateSession upserts the activity record stored under key, stamped with
// the repository clock.
func (r *SessionRepository) UpdateSession(ctx context.Context, userID *int64, key, ip, userAgent string) error {
	return r.UpsertActivity(ctx, models.ActivityRecord{Key: key, UserID: userID, IP: ip, UserAgent: userAgent})
}

// UpsertActivity writes record under its key. The record's LastSeen is kept
// as the time of the request; a zero LastSeen falls back to the repository
// clock.
func (r *SessionRepository) UpsertActivity(ctx context.Context, record models.ActivityRecord) error {
	if r.client == nil {
		return nil
	}
	seen := r.seenAt(record)

	hashKey := sessionKeyPrefix + record.Key
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, hashKey, activityFields(record, seen))
	pipe.Expire(ctx, hashKey, r.ttl)
	pipe.ZAdd(ctx, activeSessionSet, redis.Z{Score: float64(seen.Unix()), Member: record.Key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert session %s: %w", record.Key, err)
	}
	return nil
}

func (r *SessionRepository) seenAt(record models.ActivityRecord) time.Time {
	if record.LastSeen.IsZero() {
		return r.now().UTC()
	}
	return record.LastSeen.UTC()
}

func activityFields(record models.ActivityRecord, seen time.Time) map[string]interface{} {
	fields := map[string]interface{}{
		"last_seen":  seen.Format(time.RFC3339Nano),
		"ip":         record.IP,
		"user_agent": record.UserAgent,
	}
	if record.UserID != nil {
		fields["user_id"] = strconv.FormatInt(*record.UserID, 10)
	}
	return fields
}

// ListActive returns records seen within the repository ttl, most recent
// first, pruning index entries that have aged out.
func (r *SessionRepository) ListActive(ctx context.Context) ([]models.ActivityRecord, error) {
	if r.client == nil {
		return nil, nil
	}
	cutoff := r.now().Add(-r.ttl).Unix()
	if err := r.client.ZRemRangeByScore(ctx, activeSessionSet, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return nil, fmt.Errorf("prune sessions: %w", err)
	}

	keys, err := r.client.ZRevRange(ctx, activeSessionSet, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list session keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, sessionKeyPrefix+key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	records := make([]models.ActivityRecord, 0, len(keys))
	for i, cmd := range cmds {
		values, err := cmd.Result()
		if err != nil || len(values) == 0 {
			continue
		}
		records = append(records, toActivityRecord(keys[i], values))
	}
	return records, nil
}

func toActivityRecord(key string, values map[string]string) models.ActivityRecord {
	record := models.ActivityRecord{
		Key:       key,
		IP:        values["ip"],
		UserAgent: values["user_agent"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, values["last_seen"]); err == nil {
		record.LastSeen = ts
	}
	if raw, ok := values["user_id"]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			record.UserID = &id
		}
	}
	return record
}
