package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// recall is how many earlier inputs EnhancePrompt mentions.
const recall = 3

type memoryItem struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// RedisMemory keeps each user's most recent inputs in a capped list.
type RedisMemory struct {
	client   *redis.Client
	maxItems int
	ttl      time.Duration
}

func NewRedisMemory(client *redis.Client, maxItems int, ttl time.Duration) *RedisMemory {
	if maxItems <= 0 {
		maxItems = 20
	}
	return &RedisMemory{client: client, maxItems: maxItems, ttl: ttl}
}

func memoryKey(userID string) string { return fmt.Sprintf("memory:%s:inputs", userID) }

// UpdateFromInput stores prompt as the newest memory item.
func (m *RedisMemory) UpdateFromInput(ctx context.Context, userID, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	b, err := json.Marshal(memoryItem{Text: prompt, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	key := memoryKey(userID)
	pipe := m.client.TxPipeline()
	pipe.LPush(ctx, key, string(b))
	pipe.LTrim(ctx, key, 0, int64(m.maxItems-1))
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// EnhancePrompt prefixes prompt with the user's latest distinct earlier inputs.
func (m *RedisMemory) EnhancePrompt(ctx context.Context, userID, prompt string) (string, error) {
	raw, err := m.client.LRange(ctx, memoryKey(userID), 0, int64(m.maxItems-1)).Result()
	if err != nil {
		return prompt, err
	}
	cur := strings.ToLower(strings.TrimSpace(prompt))
	seen := map[string]bool{cur: true}
	var earlier []string
	for _, r := range raw {
		var it memoryItem
		if err := json.Unmarshal([]byte(r), &it); err != nil {
			continue
		}
		k := strings.ToLower(it.Text)
		if seen[k] {
			continue
		}
		seen[k] = true
		earlier = append(earlier, it.Text)
		if len(earlier) == recall {
			break
		}
	}
	if len(earlier) == 0 {
		return prompt, nil
	}
	return fmt.Sprintf("Earlier in this conversation the user asked: %s\n\n%s", strings.Join(earlier, " | "), prompt), nil
}

// Forget drops everything stored for userID.
func (m *RedisMemory) Forget(ctx context.Context, userID string) error {
	return m.client.Del(ctx, memoryKey(userID)).Err()
}
