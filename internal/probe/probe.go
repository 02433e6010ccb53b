// Package probe implements the HVACPulse heartbeat sender daemon.
// It periodically collects telemetry and posts it to the server data-plane
// (port 8788). Every outbound request carries: Authorization: Bearer <token>
package probe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/vesaa/hvacpulse/internal/config"
	"github.com/vesaa/hvacpulse/internal/models"
	"go.uber.org/zap"
)

const probeVersion = "v0.1.0"

// Run starts the probe. When once is true it sends a single heartbeat and
// returns the send error, which makes it usable as a connectivity smoke
// test; otherwise it loops on a ticker until the process is killed.
//
// cfg.ProbeJoinAddr is the data-plane address, e.g. "10.0.0.5:8788".
// cfg.ProbeToken is sent in every request as "Authorization: Bearer <token>".
func Run(cfg *config.Config, log *zap.Logger, once bool) error {
	deviceID := cfg.ProbeDeviceID
	if deviceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			return fmt.Errorf("no --device given and hostname unavailable")
		}
		deviceID = host
	}
	if cfg.ProbeSiteID == "" {
		return fmt.Errorf("site_id is required (--site flag or probe_site_id in config)")
	}
	if cfg.ProbeStatus != "" && !models.DeviceStatus(cfg.ProbeStatus).Valid() {
		return fmt.Errorf("invalid status %q (use ready, degraded or error)", cfg.ProbeStatus)
	}

	base := fmt.Sprintf("http://%s", cfg.ProbeJoinAddr)
	collector := NewCollector()

	send := func() error {
		rec := buildRecord(cfg, deviceID, collector.Collect())
		resp, err := postHeartbeat(base+"/api/heartbeat", cfg.ProbeToken, rec)
		if err != nil {
			return err
		}
		log.Info("heartbeat sent",
			zap.String("device_id", deviceID),
			zap.Int("updated", resp.Updated),
			zap.Int("failed", resp.Failed))
		return nil
	}

	if once {
		return send()
	}

	// ── Periodic reporting loop ─────────────────────────────────────────────
	ticker := time.NewTicker(time.Duration(cfg.ProbeInterval) * time.Second)
	defer ticker.Stop()

	log.Info("probe started",
		zap.String("server", base),
		zap.String("device_id", deviceID),
		zap.String("site_id", cfg.ProbeSiteID),
		zap.Int("interval_seconds", cfg.ProbeInterval))

	for {
		if err := send(); err != nil {
			log.Warn("heartbeat send failed",
				zap.String("device_id", deviceID),
				zap.Error(err))
		}
		<-ticker.C
	}
}

// buildRecord assembles the heartbeat from config and collected telemetry.
// The probe always reports its own version and interval; cpu/disk readings
// come from the snapshot and stay absent when collection failed.
func buildRecord(cfg *config.Config, deviceID string, snap *Snapshot) models.HeartbeatRecord {
	rec := models.HeartbeatRecord{
		DeviceID:   deviceID,
		SiteID:     cfg.ProbeSiteID,
		CPUPct:     snap.CPUPct,
		DiskFreeGB: snap.DiskFreeGB,
	}
	version := probeVersion
	rec.AgentVersion = &version
	if cfg.ProbeStatus != "" {
		status := models.DeviceStatus(cfg.ProbeStatus)
		rec.Status = &status
	}
	if cfg.ProbeInterval > 0 {
		interval := cfg.ProbeInterval
		rec.PollIntervalS = &interval
	}
	return rec
}

// postHeartbeat sends the record as JSON with the Bearer token in the
// Authorization header and decodes the server's response.
func postHeartbeat(url, bearerToken string, rec models.HeartbeatRecord) (*models.HeartbeatResponse, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("server rejected token (401) — check --token or probe_token in config")
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var hb models.HeartbeatResponse
	if err := json.NewDecoder(resp.Body).Decode(&hb); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &hb, nil
}
