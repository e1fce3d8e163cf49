package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queue {
	return &redisQueue{client: client}
}

func slotKey(slotID int) string {
	return fmt.Sprintf("waitlist:slot:%d", slotID)
}

// joinScript checks membership and pushes in one atomic step so two
// concurrent joins by the same customer cannot both enqueue.
const joinScript = `
if redis.call('LPOS', KEYS[1], ARGV[1]) then
	return 0
end
redis.call('RPUSH', KEYS[1], ARGV[1])
return 1
`

func (q *redisQueue) Join(ctx context.Context, slotID, customerID int) error {
	joined, err := q.client.Eval(ctx, joinScript, []string{slotKey(slotID)}, strconv.Itoa(customerID)).Int()
	if err != nil {
		return err
	}
	if joined == 0 {
		return ErrAlreadyQueued
	}
	return nil
}

func (q *redisQueue) PopNext(ctx context.Context, slotID int) (int, bool, error) {
	val, err := q.client.LPop(ctx, slotKey(slotID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	customerID, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt waitlist entry %q: %w", val, err)
	}

	return customerID, true, nil
}

func (q *redisQueue) RequeueFront(ctx context.Context, slotID, customerID int) error {
	return q.client.LPush(ctx, slotKey(slotID), strconv.Itoa(customerID)).Err()
}

func (q *redisQueue) Remove(ctx context.Context, slotID, customerID int) error {
	return q.client.LRem(ctx, slotKey(slotID), 1, strconv.Itoa(customerID)).Err()
}

func (q *redisQueue) PeekAll(ctx context.Context, slotID int) ([]int, error) {
	vals, err := q.client.LRange(ctx, slotKey(slotID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(vals))
	for _, val := range vals {
		customerID, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("corrupt waitlist entry %q: %w", val, err)
		}
		ids = append(ids, customerID)
	}
	return ids, nil
}

func (q *redisQueue) Length(ctx context.Context, slotID int) (int, error) {
	n, err := q.client.LLen(ctx, slotKey(slotID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
