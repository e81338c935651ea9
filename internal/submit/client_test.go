package submit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"strategy-logic-go/internal/models"
)

func TestSubmit(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"strat-42"}`))
	}))
	defer srv.Close()

	c := NewClient(models.BackendConfig{BaseURL: srv.URL + "/", APIToken: "secret"}, zap.NewNop())
	cfg := models.StrategyLogicConfig{}
	resp, err := c.Submit(context.Background(), Request{
		Name: "rsi dip", Symbol: "BTCUSDT", LogicConfig: cfg, TradeConfig: json.RawMessage(`{"size":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "strat-42", resp.ID)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/api/strategies", gotPath)
	assert.JSONEq(t, `"rsi dip"`, string(gotBody["name"]))
	assert.JSONEq(t, `{"size":1}`, string(gotBody["tradeConfig"]))
	assert.Contains(t, gotBody, "logicConfig")
}

func TestSubmitBackendErrorIsVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("symbol FOO is not tradable\n"))
	}))
	defer srv.Close()

	s := &StrategySubmitter{Client: NewClient(models.BackendConfig{BaseURL: srv.URL}, nil), Name: "x", Symbol: "FOO"}
	err := s.Submit(context.Background(), models.StrategyLogicConfig{})
	require.Error(t, err)

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnprocessableEntity, be.StatusCode)
	assert.Equal(t, "symbol FOO is not tradable", be.Body)
}

func TestSubmitEmptyBaseURL(t *testing.T) {
	c := NewClient(models.BackendConfig{}, nil)
	_, err := c.Submit(context.Background(), Request{Name: "x"})
	assert.Error(t, err)
}

func TestSubmitCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(models.BackendConfig{BaseURL: srv.URL}, nil).Submit(ctx, Request{Name: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
