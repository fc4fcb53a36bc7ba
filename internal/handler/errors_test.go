package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"LFG_Board/internal/model"
	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWriteErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exp := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad rank", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidDuration, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrSessionInvalid, http.StatusUnauthorized},
		{service.ErrUnauthorized, http.StatusForbidden},
		{service.ErrAccountDeleted, http.StatusForbidden},
		{&service.BannedError{Reason: "spam", Expiration: &exp}, http.StatusForbidden},
		{&service.QuotaExceededError{Action: model.ActionPost, Limit: 3}, http.StatusTooManyRequests},
		{model.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: already active", service.ErrInvalidTransition), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		writeError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	_, ok := idParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := idParam(c, "id")
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)
}
