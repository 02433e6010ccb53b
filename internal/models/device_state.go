// Package models defines GORM data models and wire types for HVACPulse.
package models

import "time"

// DeviceState is the single authoritative row per HVAC edge device. Every
// heartbeat UPSERTs into this table keyed on DeviceID; optional telemetry
// columns keep their previous value when a heartbeat omits them.
type DeviceState struct {
	// Identity
	DeviceID string `gorm:"column:device_id;primaryKey" json:"device_id"`
	SiteID   string `gorm:"column:site_id;index:ix_devstate_site;not null" json:"site_id"`

	// Liveness
	LastSeenTS   time.Time  `gorm:"column:last_seen_ts;index:ix_devstate_last_seen,sort:desc;not null" json:"last_seen_ts"`
	LastUploadTS *time.Time `gorm:"column:last_upload_ts" json:"last_upload_ts,omitempty"`

	// Telemetry (nullable: absent until a heartbeat reports them)
	QueueDepth    *int          `gorm:"column:queue_depth" json:"queue_depth,omitempty"`
	AgentVersion  *string       `gorm:"column:agent_version" json:"agent_version,omitempty"`
	PollIntervalS *int          `gorm:"column:poll_interval_s" json:"poll_interval_s,omitempty"`
	CPUPct        *float64      `gorm:"column:cpu_pct" json:"cpu_pct,omitempty"`
	DiskFreeGB    *float64      `gorm:"column:disk_free_gb" json:"disk_free_gb,omitempty"`
	Status        *DeviceStatus `gorm:"column:status;check:chk_devstate_status,status IN ('ready','degraded','error')" json:"status,omitempty"`

	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName pins the table to the name shared with the provisioned schema,
// overriding GORM's pluralized default.
func (DeviceState) TableName() string { return "device_state" }
