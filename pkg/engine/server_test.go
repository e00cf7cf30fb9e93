package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasquatch989/mockingj/pkg/logging"
)

func TestServer_StartStop(t *testing.T) {
	e, _ := newTestEngine(t)
	srv := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, e, nil)
	assert.Empty(t, srv.Addr())

	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start(), "second start must fail")

	resp, err := http.Get("http://" + srv.Addr() + "/pets/1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)

	require.NoError(t, srv.Stop(context.Background()))
	select {
	case err := <-srv.Done():
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve loop did not exit")
	}
	assert.NoError(t, srv.Stop(context.Background()), "stopping twice is a no-op")
}

func TestServer_TLSMissingCertificate(t *testing.T) {
	srv := NewServer(ServerConfig{
		Host: "127.0.0.1",
		TLS:  TLSConfig{Enabled: true, CertFile: "missing.crt", KeyFile: "missing.key"},
	}, http.NotFoundHandler(), nil)
	assert.Error(t, srv.Start())
}

func TestTLSConfig_Disabled(t *testing.T) {
	cfg, err := TLSConfig{}.BuildConfig()
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestRecover(t *testing.T) {
	h := Recover(logging.Nop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")

	written := Recover(logging.Nop(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))
	rec = httptest.NewRecorder()
	written.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
