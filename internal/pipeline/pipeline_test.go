package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledgercat/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordTask appends its label to a shared log when executed.
type recordTask struct {
	label string
	out   *[]string
	mu    *sync.Mutex
	err   error
	panic bool
	sleep time.Duration
}

func (t recordTask) Name() string { return "record" }

func (t recordTask) Execute(context.Context) error {
	if t.sleep > 0 {
		time.Sleep(t.sleep)
	}
	if t.panic {
		panic("boom")
	}
	t.mu.Lock()
	*t.out = append(*t.out, t.label)
	t.mu.Unlock()
	return t.err
}

func newRecorder() (*[]string, *sync.Mutex) {
	var out []string
	return &out, &sync.Mutex{}
}

func TestTasksRunInFIFOOrder(t *testing.T) {
	out, mu := newRecorder()
	p := New(16, &logging.MockLogger{})
	p.Start(context.Background())

	for _, label := range []string{"t1", "t2", "t3"} {
		_, err := p.Enqueue(recordTask{label: label, out: out, mu: mu})
		require.NoError(t, err)
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, []string{"t1", "t2", "t3"}, *out)
}

func TestShutdownDrainsQueue(t *testing.T) {
	out, mu := newRecorder()
	p := New(64, &logging.MockLogger{})
	p.Start(context.Background())

	const n = 20
	for i := 0; i < n; i++ {
		_, err := p.Enqueue(recordTask{label: "x", out: out, mu: mu, sleep: time.Millisecond})
		require.NoError(t, err)
	}

	require.NoError(t, p.Shutdown(context.Background()))
	// All N side effects observable before Shutdown returns.
	assert.Len(t, *out, n)

	// Worker no longer accepts work.
	_, err := p.Enqueue(recordTask{label: "late", out: out, mu: mu})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestFailedTaskDoesNotStopWorker(t *testing.T) {
	out, mu := newRecorder()
	log := &logging.MockLogger{}
	p := New(16, log)
	p.Start(context.Background())

	_, err := p.Enqueue(recordTask{label: "a", out: out, mu: mu, err: errors.New("bad row")})
	require.NoError(t, err)
	_, err = p.Enqueue(recordTask{label: "b", out: out, mu: mu})
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))

	// The failing task still ran, and the one after it ran too.
	assert.Equal(t, []string{"a", "b"}, *out)

	dead := p.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, "record", dead[0].Task)
	assert.Equal(t, "bad row", dead[0].Err)
}

func TestPanickingTaskIsDeadLettered(t *testing.T) {
	out, mu := newRecorder()
	p := New(16, &logging.MockLogger{})
	p.Start(context.Background())

	_, err := p.Enqueue(recordTask{panic: true, out: out, mu: mu})
	require.NoError(t, err)
	_, err = p.Enqueue(recordTask{label: "after", out: out, mu: mu})
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, []string{"after"}, *out)

	dead := p.DeadLetters()
	require.Len(t, dead, 1)
	assert.Contains(t, dead[0].Err, "task panic")
}

func TestRunReturnsTaskError(t *testing.T) {
	out, mu := newRecorder()
	p := New(16, &logging.MockLogger{})
	p.Start(context.Background())
	defer func() { _ = p.Shutdown(context.Background()) }()

	err := p.Run(context.Background(), recordTask{label: "sync", out: out, mu: mu, err: errors.New("nope")})
	assert.EqualError(t, err, "nope")

	err = p.Run(context.Background(), recordTask{label: "ok", out: out, mu: mu})
	assert.NoError(t, err)
	assert.Equal(t, []string{"sync", "ok"}, *out)
}

func TestEnqueueFullQueue(t *testing.T) {
	out, mu := newRecorder()
	p := New(1, &logging.MockLogger{})
	// Worker not started: the queue fills up.

	_, err := p.Enqueue(recordTask{label: "a", out: out, mu: mu})
	require.NoError(t, err)
	_, err = p.Enqueue(recordTask{label: "b", out: out, mu: mu})
	assert.ErrorIs(t, err, ErrQueueFull)

	p.Start(context.Background())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdownTwice(t *testing.T) {
	p := New(1, &logging.MockLogger{})
	p.Start(context.Background())
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}
