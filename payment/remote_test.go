package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentAPI(t *testing.T, s *Store) *httptest.Server {
	t.Helper()

	reply := func(w http.ResponseWriter, o Order, err error) {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, ErrOrderFinal):
			w.WriteHeader(http.StatusConflict)
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			json.NewEncoder(w).Encode(o)
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/payments", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PackageTitle string `json:"packageTitle"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		reply(w, s.Create(0, body.PackageTitle), nil)
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		o, err := s.Get(mux.Vars(r)["id"])
		reply(w, o, err)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/payments/{id}/confirm", func(w http.ResponseWriter, r *http.Request) {
		o, err := s.Confirm(mux.Vars(r)["id"])
		reply(w, o, err)
	}).Methods(http.MethodPost)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return ts
}

func TestClient(t *testing.T) {
	s := NewStore(nil)
	ts := newPaymentAPI(t, s)
	c := NewClient(ts.URL+"/", ts.Client())
	ctx := context.Background()

	o, err := c.Create(ctx, "猫咪")
	require.NoError(t, err)
	assert.Equal(t, "猫咪", o.PackageTitle)
	assert.Equal(t, StatusPending, o.Status)

	got, err := c.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	confirmed, err := c.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, confirmed.Status)

	_, err = c.Get(ctx, "order_missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	failed := s.Create(0, "")
	_, err = s.Fail(failed.ID)
	require.NoError(t, err)

	_, err = c.Confirm(ctx, failed.ID)
	assert.ErrorIs(t, err, ErrOrderFinal)
}

func TestClientPolling(t *testing.T) {
	s := NewStore(nil)
	ts := newPaymentAPI(t, s)
	c := NewClient(ts.URL, ts.Client())

	o := s.Create(0, "")

	p := NewPoller(c.Status(), 5*time.Millisecond)
	defer p.Stop()

	settled := make(chan Status, 1)
	p.Start(context.Background(), o.ID, func(_ string, status Status) { settled <- status })

	_, err := s.Confirm(o.ID)
	require.NoError(t, err)

	select {
	case status := <-settled:
		assert.Equal(t, StatusSuccess, status)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not settle")
	}
}
