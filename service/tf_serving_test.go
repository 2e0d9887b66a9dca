package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rushteam/ratingkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTFServingClient_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models/rating/versions/7:predict", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"predictions":[2.5,[4.0]]}`))
	}))
	defer srv.Close()

	c := NewTFServingClient(srv.URL, "rating",
		WithTFServingVersion("7"),
		WithTFServingAuth(&AuthConfig{Type: "api_key", APIKey: "k"}),
	)
	resp, err := c.Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1}, {2}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 4.0}, resp.Predictions)
	assert.Equal(t, "7", resp.ModelVersion)
}

func TestTFServingClient_EmptyRequest(t *testing.T) {
	c := NewTFServingClient("http://127.0.0.1:1", "rating")
	_, err := c.Predict(context.Background(), &core.MLPredictRequest{})
	assert.Error(t, err)
}

func TestNewMLService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ServiceConfig
		want    any
		wantErr bool
	}{
		{name: "nil", cfg: nil, wantErr: true},
		{name: "no endpoint", cfg: &ServiceConfig{Type: ServiceTypeKServe, ModelName: "m"}, wantErr: true},
		{name: "grpc endpoint", cfg: &ServiceConfig{Type: ServiceTypeKServe, Endpoint: "localhost:8500", ModelName: "m"}, wantErr: true},
		{name: "bad protocol", cfg: &ServiceConfig{Type: ServiceTypeKServe, Endpoint: "http://x", ModelName: "m", Protocol: "v3"}, wantErr: true},
		{name: "unknown type", cfg: &ServiceConfig{Type: "torch", Endpoint: "http://x", ModelName: "m"}, wantErr: true},
		{name: "kserve", cfg: &ServiceConfig{Type: ServiceTypeKServe, Endpoint: "http://x/", ModelName: "m", Protocol: KServeV1}, want: &KServeClient{}},
		{name: "tfserving", cfg: &ServiceConfig{Type: ServiceTypeTFServing, Endpoint: "https://x", ModelName: "m"}, want: &TFServingClient{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewMLService(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, svc)
		})
	}
}
