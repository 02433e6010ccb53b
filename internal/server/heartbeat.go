package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/hvacpulse/internal/models"
	"go.uber.org/zap"
)

// handleHeartbeat ingests one heartbeat envelope (data-plane only).
//
//	POST /api/heartbeat
//	Body: a single record, or { "devices": [ ... ] } for a batch
func handleHeartbeat(c *gin.Context) {
	var envelope models.HeartbeatEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		verr := &ValidationError{Msg: "invalid heartbeat payload: " + err.Error()}
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}

	// A single-record envelope missing its identity is rejected whole;
	// batch records are checked one by one so the rest can still land.
	if !envelope.IsBatch() && (envelope.DeviceID == "" || envelope.SiteID == "") {
		verr := &ValidationError{Msg: "device_id and site_id are required"}
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}

	resp, err := processHeartbeats(c.Request.Context(), envelope.Records(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// processHeartbeats runs the per-record upsert loop. seenAt is captured once
// per invocation so every record of a batch lands with the same last_seen_ts.
// Record-level failures (missing identity, constraint violations) are
// collected into the response; a connectivity failure aborts the remaining
// records and is returned as the invocation error. Upserts already committed
// before the abort stay committed.
func processHeartbeats(ctx context.Context, records []models.HeartbeatRecord, seenAt time.Time) (*models.HeartbeatResponse, error) {
	resp := &models.HeartbeatResponse{
		Results:   make([]models.HeartbeatResult, 0, len(records)),
		Timestamp: seenAt,
	}

	for _, rec := range records {
		if verr := missingIdentity(rec); verr != nil {
			resp.Failed++
			resp.Results = append(resp.Results, models.HeartbeatResult{
				DeviceID: rec.DeviceID,
				Outcome:  models.OutcomeFailed,
				Error:    verr.Error(),
			})
			heartbeatsTotal.WithLabelValues(models.OutcomeFailed).Inc()
			logger.Warn("heartbeat record rejected",
				zap.String("device_id", rec.DeviceID),
				zap.String("site_id", rec.SiteID),
				zap.String("reason", verr.Msg))
			continue
		}

		if err := UpsertHeartbeat(ctx, rec, seenAt); err != nil {
			classified := classifyDBError(err)
			var connErr *ConnectivityError
			if errors.As(classified, &connErr) {
				logger.Error("heartbeat aborted, database unreachable",
					zap.String("device_id", rec.DeviceID),
					zap.Error(connErr))
				return nil, connErr
			}
			resp.Failed++
			resp.Results = append(resp.Results, models.HeartbeatResult{
				DeviceID: rec.DeviceID,
				Outcome:  models.OutcomeFailed,
				Error:    classified.Error(),
			})
			heartbeatsTotal.WithLabelValues(models.OutcomeFailed).Inc()
			logger.Warn("heartbeat upsert failed",
				zap.String("device_id", rec.DeviceID),
				zap.Error(classified))
			continue
		}

		resp.Updated++
		resp.Results = append(resp.Results, models.HeartbeatResult{
			DeviceID: rec.DeviceID,
			Outcome:  models.OutcomeUpdated,
		})
		heartbeatsTotal.WithLabelValues(models.OutcomeUpdated).Inc()
		logger.Debug("heartbeat stored",
			zap.String("device_id", rec.DeviceID),
			zap.String("site_id", rec.SiteID))
		publishHeartbeatEvent(ctx, rec, seenAt)
	}
	return resp, nil
}

// missingIdentity names the required fields a record left empty, or returns
// nil when the record carries both.
func missingIdentity(rec models.HeartbeatRecord) *ValidationError {
	switch {
	case rec.DeviceID == "" && rec.SiteID == "":
		return &ValidationError{Msg: "device_id and site_id are required"}
	case rec.DeviceID == "":
		return &ValidationError{Msg: "device_id is required"}
	case rec.SiteID == "":
		return &ValidationError{Msg: "site_id is required"}
	}
	return nil
}
