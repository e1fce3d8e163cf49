package waitlist

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisJoin(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectEval(joinScript, []string{"waitlist:slot:1"}, "7").SetVal(int64(1))

	err := q.Join(context.Background(), 1, 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisJoinDuplicate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectEval(joinScript, []string{"waitlist:slot:1"}, "7").SetVal(int64(0))

	err := q.Join(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPopNext(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLPop("waitlist:slot:1").SetVal("7")

	customerID, ok, err := q.PopNext(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, customerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPopNextEmpty(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLPop("waitlist:slot:1").RedisNil()

	_, ok, err := q.PopNext(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPopNextCorruptEntry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLPop("waitlist:slot:1").SetVal("not-a-number")

	_, _, err := q.PopNext(context.Background(), 1)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRequeueFront(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLPush("waitlist:slot:1", "7").SetVal(1)

	err := q.RequeueFront(context.Background(), 1, 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRemove(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLRem("waitlist:slot:1", 1, "7").SetVal(1)

	err := q.Remove(context.Background(), 1, 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLength(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLLen("waitlist:slot:1").SetVal(3)

	n, err := q.Length(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPeekAll(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLRange("waitlist:slot:1", 0, -1).SetVal([]string{"7", "9", "11"})

	ids, err := q.PeekAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 9, 11}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPeekAllCorruptEntry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client)

	mock.ExpectLRange("waitlist:slot:1", 0, -1).SetVal([]string{"7", "not-a-number"})

	_, err := q.PeekAll(context.Background(), 1)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
