package signallog

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

// RedisLog backs Log with a Redis stream per master, mirroring the
// teacher's convention of namespacing Redis keys with a fixed prefix
// and wrapping every client call with context-aware error messages.
type RedisLog struct {
	client *redis.Client
	prefix string
}

func NewRedisLog(client *redis.Client, prefix string) *RedisLog {
	if prefix == "" {
		prefix = "easync:signallog"
	}
	return &RedisLog{client: client, prefix: prefix}
}

func (l *RedisLog) streamKey(masterID string) string {
	return fmt.Sprintf("%s:%s", l.prefix, masterID)
}

func (l *RedisLog) Append(ctx context.Context, s *domain.Signal) (string, error) {
	env := wire.LogEnvelopeFromSignal(s)
	encoded := wire.EncodeLogEnvelope(env)

	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.streamKey(s.MasterID),
		Values: map[string]interface{}{"env": encoded},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("signallog: redis XADD %s: %w", s.MasterID, err)
	}
	return id, nil
}

func (l *RedisLog) ReadFrom(ctx context.Context, masterID string, afterOffset string, limit int64) ([]Entry, error) {
	start := "-"
	if afterOffset != "" {
		start = "(" + afterOffset
	}

	msgs, err := l.client.XRangeN(ctx, l.streamKey(masterID), start, "+", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("signallog: redis XRANGE %s: %w", masterID, err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["env"].(string)
		if !ok {
			continue
		}
		env, err := wire.DecodeLogEnvelope([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("signallog: decode entry %s: %w", m.ID, err)
		}
		entries = append(entries, Entry{
			Offset: m.ID,
			Signal: wire.SignalFromLogEnvelope(env),
		})
	}
	return entries, nil
}

func (l *RedisLog) Trim(ctx context.Context, masterID string, keepAfterOffset string) error {
	if keepAfterOffset == "" {
		return nil
	}
	if err := l.client.XTrimMinID(ctx, l.streamKey(masterID), keepAfterOffset).Err(); err != nil {
		return fmt.Errorf("signallog: redis XTRIM %s: %w", masterID, err)
	}
	return nil
}

func (l *RedisLog) Close() error {
	return l.client.Close()
}
