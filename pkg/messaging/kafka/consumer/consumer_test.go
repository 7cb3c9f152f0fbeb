package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSource struct {
	mu         sync.Mutex
	msgs       []*kafka.Message
	readErrs   []error
	calls      []string
	commits    [][]kafka.TopicPartition
	subscribed []string
	closed     int
	drained    func()
	commitErr  error
}

func (m *mockSource) SubscribeTopics(topics []string, _ kafka.RebalanceCb) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, topics...)
	return nil
}

func (m *mockSource) ReadMessage(timeout time.Duration) (*kafka.Message, error) {
	m.mu.Lock()
	if len(m.readErrs) > 0 {
		err := m.readErrs[0]
		m.readErrs = m.readErrs[1:]
		m.mu.Unlock()
		return nil, err
	}
	if len(m.msgs) > 0 {
		msg := m.msgs[0]
		m.msgs = m.msgs[1:]
		m.calls = append(m.calls, fmt.Sprintf("read:%d", msg.TopicPartition.Offset))
		m.mu.Unlock()
		return msg, nil
	}
	drained := m.drained
	m.drained = nil
	m.mu.Unlock()

	if drained != nil {
		drained()
	}
	time.Sleep(timeout)
	return nil, kafka.NewError(kafka.ErrTimedOut, "timed out", false)
}

func (m *mockSource) CommitMessage(msg *kafka.Message) ([]kafka.TopicPartition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	m.calls = append(m.calls, fmt.Sprintf("commit:%d", msg.TopicPartition.Offset))
	tp := msg.TopicPartition
	tp.Offset++
	m.commits = append(m.commits, []kafka.TopicPartition{tp})
	return nil, nil
}

func (m *mockSource) CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	m.calls = append(m.calls, fmt.Sprintf("commit-batch:%d", len(offsets)))
	m.commits = append(m.commits, offsets)
	return nil, nil
}

func (m *mockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockSource) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func testConsumerConfig() config.ConsumerConfig {
	return config.ConsumerConfig{
		Name:              "leave-events",
		Domain:            events.DomainLeave,
		Topics:            []string{"leave-queue"},
		GroupID:           "notification-group",
		ClientID:          "notification-group-client",
		AutoOffsetReset:   "earliest",
		MaxPollRecords:    100,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		PollTimeout:       5 * time.Millisecond,
		RestartDelay:      10 * time.Millisecond,
	}
}

func leaveMessage(t *testing.T, offset int64) *kafka.Message {
	t.Helper()
	env, err := events.NewFactory("leave-service").NewLeaveEvent(events.LeaveApproved, events.LeaveData{
		LeaveID:       offset + 1,
		EmployeeID:    7,
		EmployeeEmail: "jane@example.com",
		LeaveType:     "annual",
		StartDate:     "2026-03-02",
		EndDate:       "2026-03-06",
		Days:          5,
		Status:        "approved",
	})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return rawMessage(offset, b)
}

func rawMessage(offset int64, value []byte) *kafka.Message {
	topic := "leave-queue"
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: kafka.Offset(offset)},
		Value:          value,
	}
}

func newTestConsumer(t *testing.T, src *mockSource) *Consumer {
	t.Helper()
	factory := func(*kafka.ConfigMap) (Source, error) { return src, nil }
	c := New("localhost:9092", testConsumerConfig(), factory, zap.NewNop())
	require.NoError(t, c.Start(context.Background()))
	return c
}

func TestConsumer_StartSubscribes(t *testing.T) {
	src := &mockSource{}
	c := newTestConsumer(t, src)

	assert.True(t, c.IsStarted())
	assert.Equal(t, []string{"leave-queue"}, src.subscribed)

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"leave-queue"}, src.subscribed, "second start must not resubscribe")
}

func TestConsumer_StartAfterStop(t *testing.T) {
	src := &mockSource{}
	c := newTestConsumer(t, src)

	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, 1, src.closed)
	assert.ErrorIs(t, c.Start(context.Background()), ErrStopped)
}

func TestConsumer_StartFactoryError(t *testing.T) {
	factory := func(*kafka.ConfigMap) (Source, error) { return nil, errors.New("no brokers") }
	c := New("localhost:9092", testConsumerConfig(), factory, zap.NewNop())

	err := c.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification-group")
	assert.False(t, c.IsStarted())
}

func TestConsumer_ConsumeBeforeStart(t *testing.T) {
	c := New("localhost:9092", testConsumerConfig(), nil, zap.NewNop())

	err := c.Consume(context.Background(), func(context.Context, *events.Envelope) error { return nil }, nil)

	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestConsumer_Consume_CommitsAfterEachMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{leaveMessage(t, 0), leaveMessage(t, 1)}
	c := newTestConsumer(t, src)

	var got []int64
	handler := func(_ context.Context, env *events.Envelope) error {
		leave, ok := env.Leave()
		require.True(t, ok)
		got = append(got, leave.LeaveID)
		return nil
	}

	require.NoError(t, c.Consume(ctx, handler, nil))

	assert.Equal(t, []int64{1, 2}, got)
	assert.Equal(t, []string{"read:0", "commit:0", "read:1", "commit:1"}, src.callLog())
}

func TestConsumer_Consume_FailureGoesToDLQAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := leaveMessage(t, 0)
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{first, leaveMessage(t, 1)}
	c := newTestConsumer(t, src)

	boom := errors.New("boom")
	handler := func(_ context.Context, env *events.Envelope) error {
		if leave, _ := env.Leave(); leave.LeaveID == 1 {
			return boom
		}
		return nil
	}
	var dlqRaw []json.RawMessage
	var dlqErr []error
	dlq := func(_ context.Context, raw json.RawMessage, cause error) error {
		dlqRaw = append(dlqRaw, raw)
		dlqErr = append(dlqErr, cause)
		return nil
	}

	require.NoError(t, c.Consume(ctx, handler, dlq))

	require.Len(t, dlqRaw, 1)
	assert.JSONEq(t, string(first.Value), string(dlqRaw[0]))
	assert.ErrorIs(t, dlqErr[0], boom)
	assert.Equal(t, []string{"read:0", "commit:0", "read:1", "commit:1"}, src.callLog())
}

func TestConsumer_Consume_AutoCommitSkipsManualCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{leaveMessage(t, 0)}
	cfg := testConsumerConfig()
	cfg.EnableAutoCommit = true
	c := New("localhost:9092", cfg, func(*kafka.ConfigMap) (Source, error) { return src, nil }, zap.NewNop())
	require.NoError(t, c.Start(ctx))

	require.NoError(t, c.Consume(ctx, func(context.Context, *events.Envelope) error { return nil }, nil))

	assert.Equal(t, []string{"read:0"}, src.callLog())
	assert.False(t, c.IsRunning())
}

func TestConsumer_Consume_DLQErrorIsSwallowed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{leaveMessage(t, 0), leaveMessage(t, 1)}
	c := newTestConsumer(t, src)

	handled := 0
	handler := func(context.Context, *events.Envelope) error {
		handled++
		return errors.New("boom")
	}
	dlq := func(context.Context, json.RawMessage, error) error {
		panic("dlq unavailable")
	}

	require.NoError(t, c.Consume(ctx, handler, dlq))

	assert.Equal(t, 2, handled)
	assert.Equal(t, []string{"read:0", "commit:0", "read:1", "commit:1"}, src.callLog())
}

func TestConsumer_Consume_PanicAndDecodeFailureReachDLQ(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{leaveMessage(t, 0), rawMessage(1, []byte(`{"event_type":"nope"}`))}
	c := newTestConsumer(t, src)

	handler := func(context.Context, *events.Envelope) error {
		panic("handler exploded")
	}
	var causes []error
	var raws []string
	dlq := func(_ context.Context, raw json.RawMessage, cause error) error {
		causes = append(causes, cause)
		raws = append(raws, string(raw))
		return nil
	}

	require.NoError(t, c.Consume(ctx, handler, dlq))

	require.Len(t, causes, 2)
	var panicErr *PanicError
	require.ErrorAs(t, causes[0], &panicErr)
	assert.Equal(t, "handler exploded", panicErr.Panic)
	assert.Equal(t, `{"event_type":"nope"}`, raws[1])
	assert.Len(t, src.commits, 2)
}

func TestConsumer_Consume_AlreadyRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{}
	c := newTestConsumer(t, src)

	entered := make(chan struct{})
	done := make(chan error, 1)
	src.msgs = []*kafka.Message{leaveMessage(t, 0)}
	go func() {
		done <- c.Consume(ctx, func(context.Context, *events.Envelope) error {
			close(entered)
			return nil
		}, nil)
	}()
	<-entered

	err := c.Consume(ctx, func(context.Context, *events.Envelope) error { return nil }, nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_Consume_ReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "timeout is ignored", err: kafka.NewError(kafka.ErrTimedOut, "timed out", false)},
		{name: "topic not found is temporary", err: kafka.NewError(kafka.ErrUnknownTopicOrPart, "unknown topic", false)},
		{name: "fatal error ends the loop", err: kafka.NewError(kafka.ErrFatal, "fenced", true), wantErr: true},
		{name: "non kafka error ends the loop", err: errors.New("socket closed"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			src := &mockSource{readErrs: []error{tt.err}, drained: cancel}
			src.msgs = []*kafka.Message{leaveMessage(t, 0)}
			c := newTestConsumer(t, src)

			err := c.Consume(ctx, func(context.Context, *events.Envelope) error { return nil }, nil)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				assert.Empty(t, src.callLog())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"read:0", "commit:0"}, src.callLog())
		})
	}
}

func TestConsumer_Consume_CommitFailureEndsLoop(t *testing.T) {
	src := &mockSource{commitErr: errors.New("coordinator gone")}
	src.msgs = []*kafka.Message{leaveMessage(t, 0)}
	c := newTestConsumer(t, src)

	err := c.Consume(context.Background(), func(context.Context, *events.Envelope) error { return nil }, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinator gone")
}

func TestConsumer_ConsumeBatch_FullAndPartialBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	for i := int64(0); i < 5; i++ {
		src.msgs = append(src.msgs, leaveMessage(t, i))
	}
	c := newTestConsumer(t, src)

	var sizes []int
	handler := func(ctx context.Context, envs []*events.Envelope) error {
		assert.NoError(t, ctx.Err())
		sizes = append(sizes, len(envs))
		return nil
	}

	require.NoError(t, c.ConsumeBatch(ctx, handler, 2, nil))

	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []string{
		"read:0", "read:1", "commit-batch:1",
		"read:2", "read:3", "commit-batch:1",
		"read:4", "commit-batch:1",
	}, src.callLog())
	require.Len(t, src.commits, 3)
	assert.Equal(t, kafka.Offset(2), src.commits[0][0].Offset)
	assert.Equal(t, kafka.Offset(5), src.commits[2][0].Offset)
}

func TestConsumer_ConsumeBatch_FailureGoesToDLQ(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{leaveMessage(t, 0), leaveMessage(t, 1)}
	c := newTestConsumer(t, src)

	boom := errors.New("insert failed")
	var dlqBatches [][]json.RawMessage
	dlq := func(_ context.Context, raws []json.RawMessage, cause error) error {
		assert.ErrorIs(t, cause, boom)
		dlqBatches = append(dlqBatches, raws)
		return nil
	}

	require.NoError(t, c.ConsumeBatch(ctx, func(context.Context, []*events.Envelope) error { return boom }, 2, dlq))

	require.Len(t, dlqBatches, 1)
	assert.Len(t, dlqBatches[0], 2)
	assert.Len(t, src.commits, 1)
}

func TestConsumer_ConsumeBatch_UndecodableMessageIsIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{
		leaveMessage(t, 0),
		rawMessage(1, []byte(`{"event_type":"nope"}`)),
		leaveMessage(t, 2),
	}
	c := newTestConsumer(t, src)

	var handled []int64
	handler := func(_ context.Context, envs []*events.Envelope) error {
		for _, env := range envs {
			data, ok := env.Leave()
			require.True(t, ok)
			handled = append(handled, data.LeaveID)
		}
		return nil
	}
	var dlqBatches [][]json.RawMessage
	dlq := func(_ context.Context, raws []json.RawMessage, cause error) error {
		assert.ErrorContains(t, cause, "offset 1")
		dlqBatches = append(dlqBatches, raws)
		return nil
	}

	require.NoError(t, c.ConsumeBatch(ctx, handler, 3, dlq))

	assert.Equal(t, []int64{1, 3}, handled)
	require.Len(t, dlqBatches, 1)
	require.Len(t, dlqBatches[0], 1)
	assert.JSONEq(t, `{"event_type":"nope"}`, string(dlqBatches[0][0]))
	assert.Len(t, src.commits, 1)
}

func TestConsumer_ConsumeBatch_DefaultSize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockSource{drained: cancel}
	src.msgs = []*kafka.Message{leaveMessage(t, 0), leaveMessage(t, 1), leaveMessage(t, 2)}
	c := newTestConsumer(t, src)

	var sizes []int
	require.NoError(t, c.ConsumeBatch(ctx, func(_ context.Context, envs []*events.Envelope) error {
		sizes = append(sizes, len(envs))
		return nil
	}, 0, nil))

	assert.Equal(t, []int{3}, sizes)
}

func TestConsumer_StopFlushesPartialBatch(t *testing.T) {
	src := &mockSource{}
	src.msgs = []*kafka.Message{leaveMessage(t, 0)}
	c := newTestConsumer(t, src)

	delivered := make(chan int, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.ConsumeBatch(context.Background(), func(_ context.Context, envs []*events.Envelope) error {
			delivered <- len(envs)
			return nil
		}, 10, nil)
	}()

	require.Eventually(t, func() bool { return len(src.callLog()) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, 1, <-delivered)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"read:0", "commit-batch:1"}, src.callLog())
	assert.Equal(t, 1, src.closed)
}

func TestCommitOffsets(t *testing.T) {
	a, b := "leave-queue", "audit-queue"
	batch := []*kafka.Message{
		{TopicPartition: kafka.TopicPartition{Topic: &a, Partition: 0, Offset: 4}},
		{TopicPartition: kafka.TopicPartition{Topic: &a, Partition: 1, Offset: 9}},
		{TopicPartition: kafka.TopicPartition{Topic: &a, Partition: 0, Offset: 5}},
		{TopicPartition: kafka.TopicPartition{Topic: &b, Partition: 0, Offset: 1}},
	}

	got := commitOffsets(batch)

	require.Len(t, got, 3)
	assert.Equal(t, "leave-queue", *got[0].Topic)
	assert.Equal(t, kafka.Offset(6), got[0].Offset)
	assert.Equal(t, int32(1), got[1].Partition)
	assert.Equal(t, kafka.Offset(10), got[1].Offset)
	assert.Equal(t, "audit-queue", *got[2].Topic)
	assert.Equal(t, kafka.Offset(2), got[2].Offset)
}

func TestConfigMap(t *testing.T) {
	cm := ConfigMap("broker:9092", testConsumerConfig())

	group, err := cm.Get("group.id", nil)
	require.NoError(t, err)
	assert.Equal(t, "notification-group", group)

	autoCommit, err := cm.Get("enable.auto.commit", nil)
	require.NoError(t, err)
	assert.Equal(t, false, autoCommit)

	session, err := cm.Get("session.timeout.ms", nil)
	require.NoError(t, err)
	assert.Equal(t, 30000, session)
}
