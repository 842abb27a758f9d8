package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sp-export/logger"
	"sp-export/models"
)

type fakeQueue struct {
	mu     sync.Mutex
	items  []models.ExecutionRequest
	popErr error
}

func (q *fakeQueue) Push(ctx context.Context, req models.ExecutionRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, req)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context, timeout time.Duration) (*models.ExecutionRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.popErr != nil {
		return nil, q.popErr
	}
	if len(q.items) == 0 {
		return nil, ErrQueueEmpty
	}
	req := q.items[0]
	q.items = q.items[1:]
	return &req, nil
}

func TestEnqueueAndProcess(t *testing.T) {
	queue := &fakeQueue{}
	results := &fakeResults{}

	open, mock, _ := mockOpener(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("EXEC dbo.Dummy_sp").WillReturnRows(sampleRows())
		mock.ExpectClose()
	})
	exports := NewExportService(testConfig(), logger.Discard(), newFakeStorage(), WithOpener(open), WithResultStore(results))
	worker := NewWorker(queue, exports, logger.Discard())

	ctx := context.Background()
	pending, err := Enqueue(ctx, queue, results, "inv-1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, pending.Status)

	stored, err := results.Get(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusPending, stored.Status)

	processed, err := worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, results.saved, 2)
	final := results.saved[1]
	assert.Equal(t, "inv-1", final.ID)
	assert.Equal(t, models.StatusSuccess, final.Status)
	assert.Equal(t, 2, final.Rows)

	processed, err = worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestWorker_PopError(t *testing.T) {
	queue := &fakeQueue{popErr: errors.New("connection refused")}
	worker := NewWorker(queue, NewExportService(testConfig(), nil, newFakeStorage()), nil)

	processed, err := worker.ProcessNext(context.Background())
	require.Error(t, err)
	assert.False(t, processed)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	queue := &fakeQueue{}
	worker := NewWorker(queue, NewExportService(testConfig(), nil, newFakeStorage()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
