package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_File(t *testing.T) {
	b, err := NewLoader(0).LoadBundle(context.Background(), "testdata/forest.json")
	require.NoError(t, err)
	assert.Equal(t, "forest", b.Regressor.Name())

	_, err = NewLoader(0).Load(context.Background(), "testdata/missing.json")
	assert.Error(t, err)
}

func TestLoader_HTTP(t *testing.T) {
	data := readTestdata(t, "linear.yaml")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/rating" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := NewLoaderWithClient(srv.Client())
	a, err := l.Load(context.Background(), srv.URL+"/models/rating")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-linear", a.Version)

	_, err = l.Load(context.Background(), srv.URL+"/models/other")
	assert.Error(t, err)
}

func TestLoader_Redis(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Set(context.Background(), "models/rating", readTestdata(t, "forest.json"))

	var opened *store.RedisLocation
	l := NewLoader(0)
	l.openStore = func(_ context.Context, loc *store.RedisLocation) (core.Store, error) {
		opened = loc
		return mem, nil
	}

	a, err := l.Load(context.Background(), "redis://cache:6379/3/models/rating")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-forest", a.Version)
	assert.Equal(t, &store.RedisLocation{Addr: "cache:6379", DB: 3, Key: "models/rating"}, opened)

	_, err = l.Load(context.Background(), "redis://cache:6379/3/models/absent")
	assert.Error(t, err)
}

func TestLoadFromStore(t *testing.T) {
	mem := store.NewMemoryStore()
	_, err := LoadFromStore(context.Background(), mem, "k")
	assert.True(t, core.IsStoreNotFound(err))
}
