package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks  []*asynq.Task
	err    error
	closed bool
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "t1", Queue: QueueAudit, Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error {
	f.closed = true
	return nil
}

func TestClientEnqueueAudit(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	require.NoError(t, client.EnqueueAudit(context.Background(), testEvent()))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskAuthzAudit, fake.tasks[0].Type())
	assert.Contains(t, string(fake.tasks[0].Payload()), testEvent().ID)

	require.NoError(t, client.Close())
	assert.True(t, fake.closed)
}

func TestClientEnqueueAuditIgnoresReplays(t *testing.T) {
	for _, err := range []error{asynq.ErrTaskIDConflict, asynq.ErrDuplicateTask} {
		client := &Client{client: &fakeEnqueuer{err: err}}
		assert.NoError(t, client.EnqueueAudit(context.Background(), testEvent()))
	}

	cause := errors.New("redis unreachable")
	client := &Client{client: &fakeEnqueuer{err: cause}}
	assert.ErrorIs(t, client.EnqueueAudit(context.Background(), testEvent()), cause)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}

func TestNilWorkerRun(t *testing.T) {
	var w *Worker
	assert.Error(t, w.Run(context.Background()))
}
