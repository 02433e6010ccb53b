package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newProtectedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", JWTMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.GetString("username")})
	})
	return r
}

func TestGenerateAndParseJWT(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := GenerateJWT("admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := parseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, "hvacpulse", claims.Issuer)
}

func TestJWTMiddleware(t *testing.T) {
	SetJWTSecret("unit-test-secret")
	r := newProtectedEngine()

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		w := do("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "missing Authorization header")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := do("Basic YWRtaW46YWRtaW4=")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid Authorization format")
	})

	t.Run("garbage token", func(t *testing.T) {
		w := do("Bearer not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired token")
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		SetJWTSecret("other-secret")
		stale, err := GenerateJWT("admin")
		require.NoError(t, err)
		SetJWTSecret("unit-test-secret")

		w := do("Bearer " + stale)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := GenerateJWT("operator")
		require.NoError(t, err)

		w := do("Bearer " + token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"username":"operator"`)
	})
}

func TestAgentTokenMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetAgentToken("fleet-token")
	r := gin.New()
	r.GET("/ping", AgentTokenMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Token fleet-token", http.StatusUnauthorized},
		{"valid", "Bearer fleet-token", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestCheckAdminPassword(t *testing.T) {
	SetAdminCredentials("admin", "plain-pw", "")
	assert.True(t, checkAdminPassword("plain-pw"))
	assert.False(t, checkAdminPassword("nope"))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)
	SetAdminCredentials("admin", "", string(hash))
	assert.True(t, checkAdminPassword("s3cret!"))
	assert.False(t, checkAdminPassword("plain-pw"))
}
