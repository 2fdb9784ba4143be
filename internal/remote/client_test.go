package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bookingdesk/internal/model"
	"bookingdesk/internal/slots"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var date = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func utcSchedule() slots.DaySchedule {
	s := slots.DefaultSchedule()
	s.Location = time.UTC
	return s
}

func daySlots(t *testing.T) []model.TimeSlot {
	t.Helper()
	g := slots.NewGenerator(utcSchedule(), slots.WithClock(func() time.Time { return date }))
	out, err := g.FetchSlots(context.Background(), date)
	require.NoError(t, err)
	return out
}

func slotsServer(t *testing.T, body func() SlotsResponse, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/slots", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2024-01-02", r.URL.Query().Get("date"))
		_ = json.NewEncoder(w).Encode(body())
	})
	mux.HandleFunc("POST /api/book", func(w http.ResponseWriter, r *http.Request) {
		var req BookRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(BookResponse{Success: req.SlotID == "slot-9"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSlotsWithCache(t *testing.T) {
	var hits int32
	good := daySlots(t)
	srv := slotsServer(t, func() SlotsResponse { return SlotsResponse{Date: "2024-01-02", Slots: good} }, &hits)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c := NewClient(srv.URL+"/", "secret", utcSchedule())
	c.UseRedisCache(rdb, time.Minute)

	got, err := c.FetchSlots(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, got, 8)
	assert.Equal(t, "slot-9", got[0].ID)

	_, err = c.FetchSlots(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second fetch served from redis")
	assert.True(t, mr.Exists("slots:2024-01-02"))

	ok, err := c.Submit(context.Background(), "slot-9", model.UserBooking{Date: date, SlotID: "slot-9"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("slots:2024-01-02"), "submission invalidates the date")

	_, err = c.FetchSlots(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetchSlotsRejectsBrokenContract(t *testing.T) {
	var hits int32
	good := daySlots(t)
	srv := slotsServer(t, func() SlotsResponse {
		reversed := make([]model.TimeSlot, len(good))
		for i := range good {
			reversed[len(good)-1-i] = good[i]
		}
		return SlotsResponse{Slots: reversed}
	}, &hits)

	c := NewClient(srv.URL, "secret", utcSchedule())
	_, err := c.FetchSlots(context.Background(), date)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid slots")
}

func TestSubmitRejected(t *testing.T) {
	var hits int32
	srv := slotsServer(t, func() SlotsResponse { return SlotsResponse{} }, &hits)

	c := NewClient(srv.URL, "secret", utcSchedule())
	ok, err := c.Submit(context.Background(), "slot-10", model.UserBooking{Date: date})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", utcSchedule())
	_, err := c.FetchSlots(context.Background(), date)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = c.Submit(context.Background(), "slot-9", model.UserBooking{Date: date})
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrUnexpectedStatus)
}

func TestHealthCheck(t *testing.T) {
	var hits int32
	srv := slotsServer(t, func() SlotsResponse { return SlotsResponse{} }, &hits)
	assert.NoError(t, NewClient(srv.URL, "secret", utcSchedule()).HealthCheck(context.Background()))
}
