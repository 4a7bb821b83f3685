package words

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wordgame"

func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}

// RedisStore keeps the word list as a Redis SET so several servers can share one seeded dictionary.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL and verifies the connection.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (for testing).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Words(ctx context.Context) ([]string, error) {
	key := dictionaryKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNoWords
	}
	return s.client.SMembers(ctx, key).Result()
}

// SaveWords replaces the stored dictionary atomically.
func (s *RedisStore) SaveWords(ctx context.Context, list []string) error {
	key := dictionaryKey()

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(list) > 0 {
		members := make([]interface{}, len(list))
		for i, w := range list {
			members[i] = w
		}
		pipe.SAdd(ctx, key, members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var (
	_ Store = (*RedisStore)(nil)
	_ Saver = (*RedisStore)(nil)
)
