package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Notify(t *testing.T) {
	var received struct {
		OrderID   string `json:"orderId"`
		Recipient string `json:"recipient"`
		Kind      string `json:"kind"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Notify(context.Background(), Notification{
		OrderID:   "order-1",
		Recipient: "store@example.com",
		Kind:      KindCreated,
	})
	require.NoError(t, err)
	assert.Equal(t, "order-1", received.OrderID)
	assert.Equal(t, "store@example.com", received.Recipient)
	assert.Equal(t, "created", received.Kind)
}

func TestClient_NotifyFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Notify(context.Background(), Notification{OrderID: "order-1", Kind: KindDeleted})
	require.Error(t, err)
}
