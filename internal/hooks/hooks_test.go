package hooks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjiru/triagedesk/internal/logging"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventServerStart, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventServerStart, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventServerStart, nil)
	assert.True(t, called)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventMessageReceived, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventMessageReceived, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var gotData map[string]any
	m.On(EventMessageReceived, "test", func(_ context.Context, p Payload) error {
		gotData = p.Data
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, map[string]any{
		"conversationId": int64(7),
		"urgencyLevel":   "CRITICAL",
	})

	assert.Equal(t, int64(7), gotData["conversationId"])
	assert.Equal(t, "CRITICAL", gotData["urgencyLevel"])
}

func TestManager_Emit_HandlerError(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventServerStart, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventServerStart, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	// Should not panic; second handler should still run
	m.Emit(context.Background(), EventServerStart, nil)
	assert.True(t, secondCalled)
}

func TestManager_Emit_NoHandlers(t *testing.T) {
	m := testManager()
	// Should not panic
	m.Emit(context.Background(), EventServerStop, nil)
}

func TestManager_Off(t *testing.T) {
	m := testManager()

	var callCount int
	m.On(EventServerStart, "removable", func(_ context.Context, _ Payload) error {
		callCount++
		return nil
	})

	m.Emit(context.Background(), EventServerStart, nil)
	assert.Equal(t, 1, callCount)

	m.Off(EventServerStart, "removable")
	m.Emit(context.Background(), EventServerStart, nil)
	assert.Equal(t, 1, callCount)
}

func TestManager_EmitAsync(t *testing.T) {
	m := testManager()

	var count atomic.Int32
	done := make(chan struct{})
	m.On(EventAgentJoined, "async", func(_ context.Context, _ Payload) error {
		count.Add(1)
		close(done)
		return nil
	})

	m.EmitAsync(context.Background(), EventAgentJoined, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
	assert.Equal(t, int32(1), count.Load())
}

func TestManager_Count_And_Events(t *testing.T) {
	m := testManager()

	m.On(EventMessageReceived, "a", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventMessageReceived, "b", func(_ context.Context, _ Payload) error { return nil })

	assert.Equal(t, 2, m.Count(EventMessageReceived))
	assert.Equal(t, []string{EventMessageReceived}, m.Events())
}

func TestRegisterShell(t *testing.T) {
	m := testManager()

	m.RegisterShell(EventServerStart, []ShellEntry{{Command: "true"}})
	require.Equal(t, 1, m.Count(EventServerStart))

	// `true` exits 0, so Emit must not log anything fatal or panic.
	m.Emit(context.Background(), EventServerStart, map[string]any{"port": 8480})
}
