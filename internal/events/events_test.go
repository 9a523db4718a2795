package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDataTypes(t *testing.T) {
	tests := []struct {
		data     EventData
		expected EventType
	}{
		{&EntitySavedData{}, EntitySaved},
		{&VerdictRecordedData{}, VerdictRecorded},
		{&BatchCompletedData{}, BatchCompleted},
		{&BackupCompletedData{}, BackupCompleted},
		{&ErrorEventData{}, ErrorOccurred},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.data.EventType())
	}
}

func TestBus_SubscribeFiltersByType(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	verdicts, cancelVerdicts := bus.Subscribe(4, VerdictRecorded)
	defer cancelVerdicts()
	all, cancelAll := bus.Subscribe(4)
	defer cancelAll()

	bus.Publish(Event{Type: BatchCompleted})
	bus.Publish(Event{Type: VerdictRecorded})

	require.Len(t, all, 2)
	require.Len(t, verdicts, 1)
	assert.Equal(t, VerdictRecorded, (<-verdicts).Type)
}

func TestBus_PublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Event{Type: VerdictRecorded})
	bus.Publish(Event{Type: VerdictRecorded})

	assert.Len(t, ch, 1)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	ch, cancel := bus.Subscribe(1)
	assert.Equal(t, 1, bus.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, bus.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	bus.Publish(Event{Type: VerdictRecorded})
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())
	ch, cancel := bus.Subscribe(2)
	defer cancel()

	manager.EmitTyped("screening", &BatchCompletedData{RunID: "run-1", Entities: 3, Passed: 2, Failed: 1})
	manager.EmitError("backup", errors.New("bucket missing"), map[string]any{"bucket": "b"})

	first := <-ch
	assert.Equal(t, BatchCompleted, first.Type)
	assert.Equal(t, "screening", first.Module)
	assert.False(t, first.Timestamp.IsZero())

	data, err := json.Marshal(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"run-1"`)

	second := <-ch
	assert.Equal(t, ErrorOccurred, second.Type)
	errData, ok := second.Data.(*ErrorEventData)
	require.True(t, ok)
	assert.Equal(t, "bucket missing", errData.Error)
}
