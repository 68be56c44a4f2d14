package sender_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/punchsync/internal/model"
	"github.com/Tiliavir/punchsync/internal/sender"
)

func samplePunches() []model.ClassifiedPunch {
	loc := time.FixedZone("EAT", 3*3600)
	return []model.ClassifiedPunch{
		{UserID: "7", Timestamp: time.Date(2025, 7, 27, 9, 0, 0, 0, loc), Direction: model.In, Status: 1, Punch: 0, DeviceID: "192.168.222.191"},
		{UserID: "7", Timestamp: time.Date(2025, 7, 27, 18, 0, 0, 250_000_000, loc), Direction: model.Out, Status: 1, Punch: 1, DeviceID: "192.168.222.191"},
	}
}

func TestHTTPSenderSend(t *testing.T) {
	var got sender.Batch
	var gotAuth, gotBatchID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/attendance/bulk-device-registration", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		gotBatchID = r.Header.Get("X-Batch-ID")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"message": "Bulk attendance registration completed",
			"success": true,
			"totalRecords": 2,
			"processedRecords": 1,
			"skippedDuplicates": 1,
			"skippedComplete": 0,
			"errors": ["Error processing record for user 7: db down"]
		}`))
	}))
	defer srv.Close()

	opts := sender.HTTPOptions{
		BaseURL:  srv.URL + "/",
		Endpoint: "/api/attendance/bulk-device-registration",
		Token:    "secret-token",
		Timeout:  5 * time.Second,
	}
	s := sender.NewHTTPSender(opts.URL(), sender.NewHTTPClient(context.Background(), opts), nil)

	out, err := s.Send(context.Background(), "batch-1", samplePunches())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "batch-1", gotBatchID)
	assert.Equal(t, []sender.Record{
		{UserID: "7", Timestamp: "2025-07-27T06:00:00.000Z", Direction: "IN", Status: 1, Punch: 0, DeviceID: "192.168.222.191"},
		{UserID: "7", Timestamp: "2025-07-27T15:00:00.250Z", Direction: "OUT", Status: 1, Punch: 1, DeviceID: "192.168.222.191"},
	}, got.Records)

	assert.Equal(t, model.Outcome{
		Message:           "Bulk attendance registration completed",
		TotalRecords:      2,
		ProcessedRecords:  1,
		SkippedDuplicates: 1,
		Errors:            []string{"Error processing record for user 7: db down"},
	}, out)
}

func TestHTTPSenderEmptyBatchIsNoop(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := sender.NewHTTPSender(srv.URL, srv.Client(), nil)
	out, err := s.Send(context.Background(), "batch-1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome{}, out)
	assert.Zero(t, calls.Load())
}

func TestHTTPSenderNonCreatedStatus(t *testing.T) {
	tests := []struct {
		status int
		body   string
	}{
		{http.StatusOK, `{"message":"ok"}`},
		{http.StatusBadRequest, `{"message":"No records provided"}`},
		{http.StatusUnauthorized, `{"message":"Please authenticate"}`},
		{http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))

		s := sender.NewHTTPSender(srv.URL, srv.Client(), nil)
		_, err := s.Send(context.Background(), "", samplePunches())
		srv.Close()

		require.Error(t, err)
		assert.ErrorIs(t, err, sender.ErrSend)
		var se *sender.StatusError
		require.True(t, errors.As(err, &se), "status %d: want StatusError, got %v", tt.status, err)
		assert.Equal(t, tt.status, se.StatusCode)
		assert.Equal(t, tt.body, se.Body)
	}
}

func TestHTTPSenderTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := sender.NewHTTPSender(url, &http.Client{Timeout: time.Second}, nil)
	_, err := s.Send(context.Background(), "", samplePunches())
	assert.ErrorIs(t, err, sender.ErrSend)
	var se *sender.StatusError
	assert.False(t, errors.As(err, &se))
}

func TestHTTPSenderBadResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := sender.NewHTTPSender(srv.URL, srv.Client(), nil).Send(context.Background(), "", samplePunches())
	assert.ErrorIs(t, err, sender.ErrSend)
}

func TestNewHTTPClientClientCredentials(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"issued-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/attendance/bulk-device-registration", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer issued-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"totalRecords":2,"processedRecords":2}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := sender.HTTPOptions{
		BaseURL:      srv.URL,
		Endpoint:     "api/attendance/bulk-device-registration",
		Token:        "ignored",
		ClientID:     "punchsync",
		ClientSecret: "s3cret",
		TokenURL:     srv.URL + "/oauth/token",
		Timeout:      5 * time.Second,
	}
	s := sender.NewHTTPSender(opts.URL(), sender.NewHTTPClient(context.Background(), opts), nil)

	for i := 0; i < 2; i++ {
		out, err := s.Send(context.Background(), "", samplePunches())
		require.NoError(t, err)
		assert.Equal(t, 2, out.ProcessedRecords)
	}
	assert.Equal(t, int32(1), tokenCalls.Load(), "token should be reused while valid")
}

func TestNewHTTPClientWithoutCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := sender.NewHTTPClient(context.Background(), sender.HTTPOptions{Timeout: time.Second})
	assert.Equal(t, time.Second, c.Timeout)
	_, err := sender.NewHTTPSender(srv.URL, c, nil).Send(context.Background(), "", samplePunches())
	require.NoError(t, err)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &sender.Printer{Out: &buf}
	out, err := p.Send(context.Background(), "b-1", samplePunches())
	require.NoError(t, err)
	assert.Equal(t, 2, out.TotalRecords)
	assert.Contains(t, buf.String(), "batch b-1, 2 records")
	assert.Contains(t, buf.String(), "2025-07-27T06:00:00.000Z")
}
