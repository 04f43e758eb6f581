package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue hands submitted analysis ids to the pipeline worker. Submission
// is fire-and-forget: the API pushes the id and returns; the worker pops it
// under a lease so an id is reclaimed if the worker dies mid-pipeline.
type RedisQueue struct {
	client   *redis.Client
	readyKey string
	leaseKey string
	leaseTTL time.Duration
}

// NewRedisQueue builds a queue on the given client.
func NewRedisQueue(client *redis.Client, leaseTTL time.Duration) *RedisQueue {
	if leaseTTL == 0 {
		leaseTTL = 10 * time.Minute
	}
	return &RedisQueue{
		client:   client,
		readyKey: "analyses:ready",
		leaseKey: "analyses:inflight",
		leaseTTL: leaseTTL,
	}
}

// Enqueue appends an analysis id to the ready queue.
func (q *RedisQueue) Enqueue(ctx context.Context, analysisID string) error {
	return q.client.RPush(ctx, q.readyKey, analysisID).Err()
}

// DequeueWithLease pops the next ready id and records it in-flight with a
// lease deadline. Returns "" when the queue is empty.
func (q *RedisQueue) DequeueWithLease(ctx context.Context) (string, error) {
	res, err := dequeueScript.Run(ctx, q.client,
		[]string{q.readyKey, q.leaseKey},
		time.Now().Add(q.leaseTTL).UnixMilli(),
	).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	id, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type from dequeue script: %T", res)
	}
	return id, nil
}

// ExtendLease pushes the lease deadline forward for a long-running pipeline.
func (q *RedisQueue) ExtendLease(ctx context.Context, analysisID string, extension time.Duration) error {
	return q.client.ZAdd(ctx, q.leaseKey, redis.Z{
		Score:  float64(time.Now().Add(extension).UnixMilli()),
		Member: analysisID,
	}).Err()
}

// Ack removes a finished analysis from in-flight tracking.
func (q *RedisQueue) Ack(ctx context.Context, analysisID string) error {
	return q.client.ZRem(ctx, q.leaseKey, analysisID).Err()
}

// RequeueExpired reclaims leases whose deadline passed, returning the ids to
// the ready queue.
func (q *RedisQueue) RequeueExpired(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.leaseKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", now.UnixMilli()),
		Offset: 0,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := q.client.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, q.leaseKey, id)
		pipe.RPush(ctx, q.readyKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// Depth returns the ready-queue length.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.readyKey).Result()
}

var dequeueScript = redis.NewScript(`
local id = redis.call('LPOP', KEYS[1])
if id then
  redis.call('ZADD', KEYS[2], ARGV[1], id)
  return id
end
return nil
`)
