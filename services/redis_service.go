package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/redis/go-redis/v9"

	"sp-export/config"
	"sp-export/models"
)

const (
	QueueKey        = "execution_queue:export"
	ResultKeyPrefix = "result:"
	ResultTTL       = 10 * time.Minute
)

// ErrQueueEmpty is returned by Pop when the timeout passes without a job.
var ErrQueueEmpty = errors.New("queue empty")

// ResultStore keeps invocation records for asynchronous runs.
type ResultStore interface {
	Save(ctx context.Context, inv models.Invocation) error
	Get(ctx context.Context, id string) (*models.Invocation, error)
}

// Queue carries export requests to the worker.
type Queue interface {
	Push(ctx context.Context, req models.ExecutionRequest) error
	Pop(ctx context.Context, timeout time.Duration) (*models.ExecutionRequest, error)
}

type RedisService struct {
	client  *redis.Client
	tracing bool
}

func NewRedisService(cfg config.RedisConfig, tracing bool) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisService{client: client, tracing: tracing}
}

func (r *RedisService) Close() error {
	return r.client.Close()
}

// Push pushes an execution request onto the export queue
func (r *RedisService) Push(ctx context.Context, req models.ExecutionRequest) error {
	return traced(ctx, r.tracing, "Redis.LPush", func(ctx1 context.Context) error {
		jsonData, err := json.Marshal(req)
		if err != nil {
			return err
		}

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.queue_key", QueueKey)
			seg.AddMetadata("redis.operation", "LPUSH")
		}

		return r.client.LPush(ctx, QueueKey, string(jsonData)).Err()
	})
}

// Pop blocks for up to timeout waiting for the next request
func (r *RedisService) Pop(ctx context.Context, timeout time.Duration) (*models.ExecutionRequest, error) {
	result, err := r.client.BRPop(ctx, timeout, QueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}

	// result[0] is the queue key, result[1] is the data
	var req models.ExecutionRequest
	if err := json.Unmarshal([]byte(result[1]), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Save stores the invocation record under result:<id>
func (r *RedisService) Save(ctx context.Context, inv models.Invocation) error {
	return traced(ctx, r.tracing, "Redis.Set", func(ctx1 context.Context) error {
		jsonData, err := json.Marshal(inv)
		if err != nil {
			return err
		}

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.key", ResultKeyPrefix+inv.ID)
			seg.AddMetadata("redis.operation", "SET")
		}

		return r.client.Set(ctx, ResultKeyPrefix+inv.ID, jsonData, ResultTTL).Err()
	})
}

// Get returns nil, nil when no record exists
func (r *RedisService) Get(ctx context.Context, id string) (*models.Invocation, error) {
	var result *models.Invocation

	err := traced(ctx, r.tracing, "Redis.Get", func(ctx1 context.Context) error {
		key := ResultKeyPrefix + id
		jsonData, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var inv models.Invocation
		if err := json.Unmarshal([]byte(jsonData), &inv); err != nil {
			return err
		}
		result = &inv

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.key", key)
			seg.AddMetadata("redis.operation", "GET")
		}

		return nil
	})

	return result, err
}

// Ping checks Redis connection
func (r *RedisService) Ping(ctx context.Context) error {
	return traced(ctx, r.tracing, "Redis.Ping", func(ctx1 context.Context) error {
		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.operation", "PING")
		}
		return r.client.Ping(ctx).Err()
	})
}

// traced runs fn inside an X-Ray subsegment when tracing is on.
func traced(ctx context.Context, enabled bool, name string, fn func(context.Context) error) error {
	if !enabled {
		return fn(ctx)
	}
	return xray.Capture(ctx, name, fn)
}
