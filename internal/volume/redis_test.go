package volume

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

// failingSetHook rejects every SET before it reaches the network, counting
// the attempts.
type failingSetHook struct {
	sets int
}

func (h *failingSetHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *failingSetHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "set" {
			h.sets++
			return errors.New("write refused")
		}
		return next(ctx, cmd)
	}
}

func (h *failingSetHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// TestSet_WriteFailureDoesNotAbortBatch: the side cache is best-effort, so
// one failed write must not abandon the remaining records.
func TestSet_WriteFailureDoesNotAbortBatch(t *testing.T) {
	hook := &failingSetHook{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(hook)
	defer client.Close()

	cache := NewRedisCache(client, nil)
	cache.Set(context.Background(), []*CacheRecord{
		{Text: "홍삼스틱", Volume: 5000},
		{Text: "오메가3", Volume: 3200},
	})

	if hook.sets != 2 {
		t.Errorf("expected a write attempt per record, got %d", hook.sets)
	}
}
