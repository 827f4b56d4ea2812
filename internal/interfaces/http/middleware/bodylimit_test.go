package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedEngine(limit int64, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(limit))
	r.POST("/sales", h)
	return r
}

func TestBodyLimit(t *testing.T) {
	echo := func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.String(http.StatusRequestEntityTooLarge, "limit %d", tooLarge.Limit)
				return
			}
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.String(http.StatusOK, string(b))
	}

	t.Run("body under the limit reaches the handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		newLimitedEngine(64, echo).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"items":[]}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `{"items":[]}`, w.Body.String())
	})

	t.Run("declared length over the limit is rejected up front", func(t *testing.T) {
		called := false
		r := newLimitedEngine(16, func(c *gin.Context) { called = true })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(strings.Repeat("x", 40))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.False(t, called)
		assert.Contains(t, w.Body.String(), `"code":"ERR_REQUEST_TOO_LARGE"`)
		assert.Contains(t, w.Body.String(), "the limit is 16")
	})

	t.Run("chunked body fails while reading", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(strings.Repeat("x", 40)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		newLimitedEngine(16, echo).ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "limit 16", w.Body.String())
	})

	t.Run("zero limit disables the check", func(t *testing.T) {
		w := httptest.NewRecorder()
		newLimitedEngine(0, echo).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(strings.Repeat("x", 40))))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
