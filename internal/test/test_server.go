package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/api/httperrors"
	"github/chapool/ledger-signer/internal/api/router"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
)

// BasePath is the derivation prefix Addresses are generated under.
const BasePath = "44'/60'/0'/0"

// RPCResponse is a decoded JSON-RPC response.
type RPCResponse struct {
	JSONRPC string               `json:"jsonrpc"`
	ID      json.RawMessage      `json:"id"`
	Result  json.RawMessage      `json:"result"`
	Error   *httperrors.RPCError `json:"error"`
}

// Config returns the server config used by test servers: mainnet chain id and BasePath.
func Config() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()

	cfg.Ledger.ChainID = 1
	cfg.Ledger.BasePath = BasePath
	cfg.Ledger.PathIndex = 0
	cfg.Ledger.AlwaysConfirm = false
	cfg.Ledger.AccountsLength = config.DefaultAccountsLength
	cfg.Ledger.AddressSearchLimit = config.DefaultAddressSearchLimit
	cfg.Ledger.ProbeTimeout = time.Second
	cfg.Device.Type = config.DeviceTypeEmulator

	return cfg
}

// WithTestServer runs closure against a fully wired server backed by an emulator seeded
// with Mnemonic.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerConfigurable(t, Config(), NewEmulator(t), closure)
}

// WithTestServerConfigurable runs closure against a server built from cfg talking to dev.
func WithTestServerConfigurable(t *testing.T, cfg config.Server, dev device.Device, closure func(s *api.Server)) {
	t.Helper()

	s, err := api.InitNewServerWithDevice(cfg, dev)
	require.NoError(t, err, "Failed to initialize server")

	router.Init(s)

	closure(s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, err := range s.Shutdown(ctx) {
		t.Errorf("Failed to shutdown server: %v", err)
	}
}

// PerformRequest serves a single request against s. Non nil bodies are JSON encoded.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body interface{}, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}

	if body != nil && len(req.Header.Get(echo.HeaderContentType)) == 0 {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// PerformRPC calls method with positional params and decodes the response.
func PerformRPC(t *testing.T, s *api.Server, method string, params ...interface{}) *RPCResponse {
	t.Helper()

	if params == nil {
		params = []interface{}{}
	}

	res := PerformRequest(t, s, http.MethodPost, "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}, nil)
	require.Equal(t, http.StatusOK, res.Result().StatusCode)

	var response RPCResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &response))

	return &response
}

// ParseResult decodes the result of a successful response into v.
func ParseResult(t *testing.T, res *RPCResponse, v interface{}) {
	t.Helper()

	require.Nil(t, res.Error, "unexpected JSON-RPC error")
	require.NoError(t, json.Unmarshal(res.Result, v))
}
