// Package server provides the HVACPulse Gin-based REST API.
// Routes are split into two groups:
//   - Control-plane (port 8787): JWT-protected; serves the operator API and /metrics.
//   - Data-plane   (port 8788): Bearer-token-protected; receives device heartbeats.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// adminCredentials are set at startup from config.
// v0.2+ will replace this with DB-backed operator accounts.
var adminUser, adminPass, adminPassHash string

// SetAdminCredentials stores credentials for /api/login. When passHash is
// non-empty it is treated as a bcrypt hash and checked instead of pass.
func SetAdminCredentials(user, pass, passHash string) {
	adminUser = user
	adminPass = pass
	adminPassHash = passHash
}

// checkAdminPassword verifies a login attempt against the configured
// credential, preferring the bcrypt hash when one is set.
func checkAdminPassword(given string) bool {
	if adminPassHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(adminPassHash), []byte(given)) == nil
	}
	return given == adminPass
}

// RegisterControlRoutes wires up the control-plane API on the given engine.
// Call this on the engine bound to port 8787.
//
//	Public:   POST /api/login, GET /api/health, GET /metrics
//	Protected (JWT): device state reads
func RegisterControlRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", handleLogin)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", JWTMiddleware())
	{
		auth.GET("/devices", handleDeviceList)
		auth.GET("/devices/:id", handleDeviceGet)
	}
}

// RegisterDataRoutes wires up the data-plane API on the given engine.
// Call this on the engine bound to port 8788.
// All routes require a valid Bearer agent token.
func RegisterDataRoutes(r *gin.Engine) {
	api := r.Group("/api", AgentTokenMiddleware())
	{
		api.POST("/heartbeat", handleHeartbeat)
	}

	// Data-plane health (no auth — used by load-balancers / k8s probes)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if body.Username != adminUser || !checkAdminPassword(body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": 86400, // seconds
		"type":       "Bearer",
	})
}

// handleDeviceList returns device state rows, newest heartbeat first.
//
//	GET /api/devices?site_id=SITE&limit=N
func handleDeviceList(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	rows, err := ListDeviceStates(c.Request.Context(), c.Query("site_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": classifyDBError(err).Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

// handleDeviceGet returns one device's state row.
//
//	GET /api/devices/:id
func handleDeviceGet(c *gin.Context) {
	row, err := GetDeviceState(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": classifyDBError(err).Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": row})
}
