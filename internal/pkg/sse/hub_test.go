package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToTopic(t *testing.T) {
	hub := NewHub()

	group, cleanupGroup := hub.Subscribe("group:7A")
	defer cleanupGroup()
	other, cleanupOther := hub.Subscribe("group:7B")
	defer cleanupOther()

	hub.PublishToMany([]string{"all", "group:7A"}, Event{Event: "attendance.recorded", Data: "S1"})

	select {
	case ev := <-group:
		assert.Equal(t, "group:7A", ev.Topic)
		assert.Equal(t, "attendance.recorded", ev.Event)
		assert.Equal(t, "S1", ev.Data)
	default:
		t.Fatal("expected an event on group:7A")
	}

	select {
	case ev := <-other:
		t.Fatalf("unexpected event on group:7B: %+v", ev)
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cleanup := hub.Subscribe("all")
	defer cleanup()

	for i := 0; i < subscriberBuffer*3; i++ {
		hub.Publish("all", Event{Event: "attendance.recorded"})
	}
	assert.Equal(t, 1, hub.SubscriberCount("all"))
}

func TestHub_Cleanup(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("subject:S1")
	require.Equal(t, 1, hub.TotalSubscribers())

	cleanup()
	cleanup()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.TotalSubscribers())
	assert.NotPanics(t, func() { hub.Publish("subject:S1", Event{}) })
}
