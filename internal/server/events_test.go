package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	events []HeartbeatEvent
	err    error
}

func (f *fakePublisher) PublishHeartbeat(_ context.Context, event HeartbeatEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestHeartbeatEventPublished(t *testing.T) {
	setupTestDB(t)
	r := newDataEngine()
	pub := &fakePublisher{}
	SetEventPublisher(pub)

	w := postHeartbeat(t, r, `{"device_id":"hvac-42","site_id":"plant-c","status":"degraded"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeHeartbeatResponse(t, w)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "hvac-42", ev.DeviceID)
	assert.Equal(t, "plant-c", ev.SiteID)
	assert.Equal(t, "degraded", ev.Status)
	assert.True(t, ev.SeenAt.Equal(resp.Timestamp),
		"event seen_at %v should match response timestamp %v", ev.SeenAt, resp.Timestamp)
}

func TestHeartbeatEventOnlyForStoredRecords(t *testing.T) {
	setupTestDB(t)
	r := newDataEngine()
	pub := &fakePublisher{}
	SetEventPublisher(pub)

	w := postHeartbeat(t, r, `{"devices":[{"device_id":"good","site_id":"s"},{"site_id":"s"},{"device_id":"bad","site_id":"s","status":"offline"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeHeartbeatResponse(t, w)
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, 2, resp.Failed)

	// only the stored record produced an event
	require.Len(t, pub.events, 1)
	assert.Equal(t, "good", pub.events[0].DeviceID)
	assert.Empty(t, pub.events[0].Status)
}

func TestFailingPublisherNeverFailsHeartbeat(t *testing.T) {
	setupTestDB(t)
	r := newDataEngine()
	SetEventPublisher(&fakePublisher{err: errors.New("broker down")})

	w := postHeartbeat(t, r, `{"device_id":"hvac-9","site_id":"s","status":"ready"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeHeartbeatResponse(t, w)
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, 0, resp.Failed)

	_, err := GetDeviceState(context.Background(), "hvac-9")
	require.NoError(t, err)
}
