package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"tfshrms.cloud/hrms/hrms/core"
	"tfshrms.cloud/hrms/infrastructure/logging"
)

type failingNotifier struct{ calls chan string }

func (n failingNotifier) Error(message string) error {
	n.calls <- message
	return errors.New("slack down")
}

func TestFail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		alert  bool
	}{
		{"validation", fmt.Errorf("%w: bad month", core.ErrValidation), http.StatusBadRequest, false},
		{"not found", fmt.Errorf("%w: user 4", core.ErrNotFound), http.StatusNotFound, false},
		{"conflict", fmt.Errorf("%w: duplicate", core.ErrConflict), http.StatusConflict, false},
		{"unauthorized", core.ErrUnauthorized, http.StatusUnauthorized, false},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logging.NewTestLogger()
			notifier := failingNotifier{calls: make(chan string, 1)}
			h := Handler{Log: log.Logger, Notifier: notifier}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
			h.Fail(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			if !tt.alert {
				assert.Contains(t, w.Body.String(), tt.err.Error())
				assert.Empty(t, notifier.calls)
				return
			}
			assert.NotContains(t, w.Body.String(), "connection reset")
			assert.Contains(t, <-notifier.calls, "connection reset")
			log.AssertLogged(t, zapcore.ErrorLevel, "request failed")
			assert.Eventually(t, func() bool {
				for _, e := range log.All() {
					if e.Message == "failed to post alert" {
						return true
					}
				}
				return false
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := Handler{Log: logging.Nop()}
	for value, ok := range map[string]bool{"7": true, "0": false, "-1": false, "x": false} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: value}}
		id, got := h.ParamID(c, "id")
		assert.Equal(t, ok, got, value)
		if ok {
			assert.Equal(t, 7, id)
		} else {
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
	}
}
