package carrier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	xerrors "shopcore-service/internal/pkg/errors"
)

type memTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *memTokenStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memTokenStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

const serviceabilityBody = `{
	"status": 200,
	"data": {
		"available_courier_companies": [
			{
				"courier_company_id": 24,
				"courier_name": "Delhivery Surface",
				"freight_charge": 55.5,
				"cod_charges": 30,
				"other_charges": 4.5,
				"rate": 90,
				"etd": "Sep 2, 2026",
				"estimated_delivery_days": "4",
				"is_surface": true
			},
			{
				"courier_company_id": 51,
				"courier_name": "Xpressbees Air",
				"freight_charge": 110,
				"cod_charges": 40,
				"other_charges": 0,
				"rate": 150,
				"etd": "Aug 31, 2026",
				"estimated_delivery_days": "2",
				"is_surface": false
			}
		]
	}
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *memTokenStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := &memTokenStore{}
	client := NewClient(Config{
		BaseURL:  server.URL,
		Email:    "ops@example.com",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, store, zap.NewNop())
	return client, store
}

func TestRatesLoginAndNormalize(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token": "tok-123"}`))
	})
	mux.HandleFunc("/courier/serviceability/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "560001", r.URL.Query().Get("delivery_postcode"))
		assert.Equal(t, "1", r.URL.Query().Get("cod"))
		w.Write([]byte(serviceabilityBody))
	})

	client, store := newTestClient(t, mux)

	rates, err := client.Rates(context.Background(), RateRequest{
		PickupPostcode:   "110001",
		DeliveryPostcode: "560001",
		WeightKg:         1.5,
		IsCOD:            true,
		DeclaredValue:    1200,
	})
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "tok-123", store.token)

	surface := rates[0]
	assert.Equal(t, 24, surface.CarrierID)
	assert.Equal(t, "Delhivery Surface", surface.CarrierName)
	assert.Equal(t, 55.5, surface.FreightCharge)
	assert.Equal(t, 30.0, surface.CODCharge)
	assert.Equal(t, 90.0, surface.TotalCharge)
	assert.Equal(t, "4", surface.EstimatedDays)
	assert.True(t, surface.IsSurface)
	assert.False(t, surface.IsAir)

	air := rates[1]
	assert.False(t, air.IsSurface)
	assert.True(t, air.IsAir)
}

func TestRatesReusesCachedToken(t *testing.T) {
	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		w.Write([]byte(`{"token": "tok-xyz"}`))
	})
	mux.HandleFunc("/courier/serviceability/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(serviceabilityBody))
	})

	client, store := newTestClient(t, mux)
	store.token = "cached-token"

	_, err := client.Rates(context.Background(), RateRequest{DeliveryPostcode: "560001"})
	require.NoError(t, err)
	assert.Zero(t, logins)
}

func TestRatesTotalFallsBackToComponentSum(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/courier/serviceability/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":200,"data":{"available_courier_companies":[
			{"courier_company_id":7,"courier_name":"Ecom Express","freight_charge":70,"cod_charges":25,"other_charges":5,"rate":0,"is_surface":true}
		]}}`))
	})

	client, store := newTestClient(t, mux)
	store.token = "tok"

	rates, err := client.Rates(context.Background(), RateRequest{DeliveryPostcode: "560001"})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 100.0, rates[0].TotalCharge)
}

func TestRatesNotServiceable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/courier/serviceability/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no couriers found"}`, http.StatusNotFound)
	})

	client, store := newTestClient(t, mux)
	store.token = "tok"

	rates, err := client.Rates(context.Background(), RateRequest{DeliveryPostcode: "000000"})
	require.NoError(t, err)
	require.NotNil(t, rates)
	assert.Empty(t, rates)
}

func TestRatesAuthFailureIsTransport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)

	rates, err := client.Rates(context.Background(), RateRequest{DeliveryPostcode: "560001"})
	assert.Nil(t, rates)
	assert.ErrorIs(t, err, xerrors.ErrTransport)
}

func TestRatesServerErrorIsTransport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/courier/serviceability/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client, store := newTestClient(t, mux)
	store.token = "tok"

	rates, err := client.Rates(context.Background(), RateRequest{DeliveryPostcode: "560001"})
	assert.Nil(t, rates)
	assert.ErrorIs(t, err, xerrors.ErrTransport)
}

func TestRatesNetworkFailureIsTransport(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close() // nothing listening anymore

	store := &memTokenStore{token: "tok"}
	client := NewClient(Config{BaseURL: url, Timeout: time.Second}, store, zap.NewNop())

	rates, err := client.Rates(context.Background(), RateRequest{DeliveryPostcode: "560001"})
	assert.Nil(t, rates)
	assert.ErrorIs(t, err, xerrors.ErrTransport)
}

func TestRatesContextCancellation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/courier/serviceability/", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	client, store := newTestClient(t, mux)
	store.token = "tok"

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rates, err := client.Rates(ctx, RateRequest{DeliveryPostcode: "560001"})
	assert.Nil(t, rates)
	assert.ErrorIs(t, err, xerrors.ErrTransport)
}
