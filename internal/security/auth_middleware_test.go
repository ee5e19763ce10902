package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newIdentityRouter(handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(handler)
	router.GET("/whoami", func(c *gin.Context) {
		caller := GetCaller(c)
		c.String(http.StatusOK, caller.ID+"|"+caller.DisplayName)
	})
	return router
}

func TestJWTManagerRoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	token, err := manager.GenerateToken("u-1", "Alice")
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "Alice", claims.Username)
}

func TestJWTManagerRejectsForeignSignature(t *testing.T) {
	token, err := NewJWTManager("one", time.Hour).GenerateToken("u-1", "Alice")
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManagerRejectsExpired(t *testing.T) {
	manager := NewJWTManager("secret", -time.Minute)
	token, err := manager.GenerateToken("u-1", "Alice")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	_, err := ExtractTokenFromHeader("")
	assert.ErrorIs(t, err, ErrMissingAuthHeader)

	_, err = ExtractTokenFromHeader("Basic abc")
	assert.ErrorIs(t, err, ErrMalformedHeader)

	token, err := ExtractTokenFromHeader("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestRequireAuth(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)
	router := newIdentityRouter(NewAuthMiddleware(manager).RequireAuth())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := manager.GenerateToken("u-7", "Bob")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-7|Bob", w.Body.String())
}

func TestTrustHeaders(t *testing.T) {
	router := newIdentityRouter(TrustHeaders())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, "anonymous|anonymous", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "u-9")
	req.Header.Set("X-User-Name", "Carol")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "u-9|Carol", w.Body.String())
}
