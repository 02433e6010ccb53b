package models

import "time"

// DeviceStatus is the agent-reported health state of a device.
type DeviceStatus string

const (
	StatusReady    DeviceStatus = "ready"
	StatusDegraded DeviceStatus = "degraded"
	StatusError    DeviceStatus = "error"
)

// Valid reports whether s is one of the known status values. The database
// check constraint is authoritative; this is a client-side convenience.
func (s DeviceStatus) Valid() bool {
	switch s {
	case StatusReady, StatusDegraded, StatusError:
		return true
	}
	return false
}

// HeartbeatRecord is one device's heartbeat as sent by an agent.
// DeviceID and SiteID are mandatory; every other field is optional and a
// nil pointer means "not reported", which leaves the stored value untouched.
type HeartbeatRecord struct {
	DeviceID      string        `json:"device_id"`
	SiteID        string        `json:"site_id"`
	Status        *DeviceStatus `json:"status,omitempty"`
	AgentVersion  *string       `json:"agent_version,omitempty"`
	CPUPct        *float64      `json:"cpu_pct,omitempty"`
	DiskFreeGB    *float64      `json:"disk_free_gb,omitempty"`
	QueueDepth    *int          `json:"queue_depth,omitempty"`
	PollIntervalS *int          `json:"poll_interval_s,omitempty"`
	LastUploadTS  *time.Time    `json:"last_upload_ts,omitempty"`
}

// HeartbeatEnvelope is the request body of POST /api/heartbeat. Agents send
// either a single record (fields at the top level) or a batch under
// "devices". A present "devices" key, even an empty one, selects batch mode.
type HeartbeatEnvelope struct {
	HeartbeatRecord
	Devices []HeartbeatRecord `json:"devices,omitempty"`
}

// IsBatch reports whether the envelope carried a "devices" array.
func (e *HeartbeatEnvelope) IsBatch() bool { return e.Devices != nil }

// Records flattens the envelope into the list of records to process.
func (e *HeartbeatEnvelope) Records() []HeartbeatRecord {
	if e.IsBatch() {
		return e.Devices
	}
	return []HeartbeatRecord{e.HeartbeatRecord}
}

// Heartbeat outcome labels used in results and metrics.
const (
	OutcomeUpdated = "updated"
	OutcomeFailed  = "failed"
)

// HeartbeatResult reports the outcome for one record of a request.
type HeartbeatResult struct {
	DeviceID string `json:"device_id"`
	Outcome  string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// HeartbeatResponse is the body returned by POST /api/heartbeat. The request
// as a whole succeeds (HTTP 200) even when individual records fail; callers
// inspect Failed and Results for per-device errors.
type HeartbeatResponse struct {
	Updated   int               `json:"updated"`
	Failed    int               `json:"failed"`
	Results   []HeartbeatResult `json:"results"`
	Timestamp time.Time         `json:"timestamp"`
}
