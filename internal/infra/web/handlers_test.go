//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
)

func authedRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	return req
}

func TestListMessagesHandler(t *testing.T) {
	t.Run("returns inbox snapshot", func(t *testing.T) {
		inbox := &stubInbox{
			listFn: func(_ context.Context, userID string) ([]model.MessageSummary, error) {
				if userID != "user-1" {
					return nil, domain.ErrNotFound
				}
				return []model.MessageSummary{
					{ID: "m2", From: "b@e.test", Subject: "two", ReceivedAt: time.Now()},
					{ID: "m1", From: "a@e.test", Subject: "one", ReceivedAt: time.Now().Add(-time.Minute)},
				}, nil
			},
		}
		srv := newTestServerWithInbox(t, nil, inbox, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/users/user-1/messages"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Data  []model.MessageSummary `json:"data"`
			Total int                    `json:"total"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Total != 2 || len(resp.Data) != 2 || resp.Data[0].ID != "m2" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		srv := newTestServerWithInbox(t, nil, &stubInbox{}, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/users/ghost/messages"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("vanished mailbox is 410", func(t *testing.T) {
		inbox := &stubInbox{
			listFn: func(context.Context, string) ([]model.MessageSummary, error) {
				return nil, domain.ErrMailboxGone
			},
		}
		srv := newTestServerWithInbox(t, nil, inbox, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/users/user-1/messages"))
		if rec.Code != http.StatusGone {
			t.Fatalf("expected 410, got %d", rec.Code)
		}
	})

	t.Run("provider outage is 502", func(t *testing.T) {
		inbox := &stubInbox{
			listFn: func(context.Context, string) ([]model.MessageSummary, error) {
				return nil, domain.ErrTransient
			},
		}
		srv := newTestServerWithInbox(t, nil, inbox, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/users/user-1/messages"))
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("requires api key", func(t *testing.T) {
		srv := newTestServerWithInbox(t, nil, &stubInbox{}, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/messages", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestFetchMessageHandler(t *testing.T) {
	inbox := &stubInbox{
		fetchFn: func(_ context.Context, userID, messageID string) (*model.MessageDetail, error) {
			if userID != "user-1" || messageID != "m1" {
				return nil, domain.ErrNotFound
			}
			return &model.MessageDetail{
				MessageSummary: model.MessageSummary{ID: "m1", From: "a@e.test", Subject: "one"},
				Text:           "body text",
			}, nil
		},
	}
	srv := newTestServerWithInbox(t, nil, inbox, nil)

	t.Run("returns full message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/users/user-1/messages/m1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var detail model.MessageDetail
		if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if detail.ID != "m1" || detail.Text != "body text" {
			t.Fatalf("unexpected detail: %+v", detail)
		}
	})

	t.Run("unknown message is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/users/user-1/messages/nope"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestDeleteMessageHandler(t *testing.T) {
	t.Run("deletion is 204", func(t *testing.T) {
		var gotUser, gotMsg string
		inbox := &stubInbox{
			deleteFn: func(_ context.Context, userID, messageID string) error {
				gotUser, gotMsg = userID, messageID
				return nil
			},
		}
		srv := newTestServerWithInbox(t, nil, inbox, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/users/user-1/messages/m1"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if gotUser != "user-1" || gotMsg != "m1" {
			t.Fatalf("handler passed wrong ids: %s/%s", gotUser, gotMsg)
		}
	})

	t.Run("rejected credentials are 409", func(t *testing.T) {
		inbox := &stubInbox{
			deleteFn: func(context.Context, string, string) error {
				return domain.ErrInvalidCredentials
			},
		}
		srv := newTestServerWithInbox(t, nil, inbox, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/users/user-1/messages/m1"))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}
