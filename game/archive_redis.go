package game

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

type RedisRoundArchive struct {
	rdclient *redis.Client
}

func NewRedisRoundArchive(redisURL string, redisPW string, redisDB int) *RedisRoundArchive {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &RedisRoundArchive{
		rdclient: rdclient,
	}
}

func archiveKey(tableCode string) string {
	return fmt.Sprintf("belote|%s|rounds", tableCode)
}

func (r *RedisRoundArchive) Append(tableCode string, entry ScoreEntry) error {
	entryBytes, err := jsoniter.Marshal(entry)
	if err != nil {
		return err
	}
	err = r.rdclient.RPush(context.Background(), archiveKey(tableCode), entryBytes).Err()
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("Could not archive round %d of table %s", entry.Round, tableCode))
	}
	return nil
}

func (r *RedisRoundArchive) List(tableCode string) ([]ScoreEntry, error) {
	values, err := r.rdclient.LRange(context.Background(), archiveKey(tableCode), 0, -1).Result()
	if err == redis.Nil {
		return []ScoreEntry{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Could not read archive of table %s", tableCode))
	}
	entries := make([]ScoreEntry, 0, len(values))
	for _, v := range values {
		var entry ScoreEntry
		err = jsoniter.Unmarshal([]byte(v), &entry)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *RedisRoundArchive) Remove(tableCode string) error {
	return r.rdclient.Del(context.Background(), archiveKey(tableCode)).Err()
}

func (r *RedisRoundArchive) Close() error {
	return r.rdclient.Close()
}
