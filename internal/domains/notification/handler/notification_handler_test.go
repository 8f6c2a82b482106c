package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentflow-backend/internal/domains/notification/model"
	"rentflow-backend/internal/domains/notification/service"
	"rentflow-backend/internal/shared"
)

type mockNotificationService struct{ mock.Mock }

func (m *mockNotificationService) NotifyPaymentEvent(ctx context.Context, evt service.PaymentEvent) (int, error) {
	args := m.Called(ctx, evt)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationService) List(ctx context.Context, req model.ListRequest) ([]model.Notification, error) {
	args := m.Called(ctx, req)
	items, _ := args.Get(0).([]model.Notification)
	return items, args.Error(1)
}

func (m *mockNotificationService) MarkAsRead(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func setupRouter(svc service.NotificationService, authed bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if authed {
		r.Use(func(c *gin.Context) {
			c.Set(shared.CtxUserID, int64(100))
			c.Next()
		})
	}
	h := NewNotificationHandler(svc)
	r.GET("/notifications", h.ListNotifications)
	r.PATCH("/notifications/:id/read", h.MarkAsRead)
	return r
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestListNotifications(t *testing.T) {
	svc := &mockNotificationService{}
	svc.On("List", mock.Anything, model.ListRequest{UserID: 100, UnreadOnly: true, Limit: 20}).
		Return([]model.Notification{{ID: 1, UserID: 100, Title: "Payment successful"}}, nil)

	w := do(setupRouter(svc, true), http.MethodGet, "/notifications?unread=true&limit=500")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []model.Notification `json:"data"`
		Meta struct {
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 20, body.Meta.Limit)
	assert.Equal(t, 1, body.Meta.Total)
	svc.AssertExpectations(t)
}

func TestListNotifications_Errors(t *testing.T) {
	svc := &mockNotificationService{}
	assert.Equal(t, http.StatusUnauthorized, do(setupRouter(svc, false), http.MethodGet, "/notifications").Code)

	svc.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, do(setupRouter(svc, true), http.MethodGet, "/notifications").Code)
}

func TestMarkAsRead(t *testing.T) {
	svc := &mockNotificationService{}
	svc.On("MarkAsRead", mock.Anything, int64(5), int64(100)).Return(nil)
	svc.On("MarkAsRead", mock.Anything, int64(6), int64(100)).Return(model.ErrNotificationNotFound)
	svc.On("MarkAsRead", mock.Anything, int64(7), int64(100)).Return(errors.New("db down"))
	r := setupRouter(svc, true)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPatch, "/notifications/5/read").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/notifications/6/read").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPatch, "/notifications/7/read").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/notifications/abc/read").Code)
	svc.AssertExpectations(t)
}
