package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEtherscanClient(srv *httptest.Server) *EtherscanClient {
	c := NewEtherscanClient("test-key")
	c.baseURL = srv.URL
	return c
}

func TestEtherscanClient_GetBytecode(t *testing.T) {
	t.Run("returns bytecode for a contract", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "proxy", r.URL.Query().Get("module"))
			assert.Equal(t, "eth_getCode", r.URL.Query().Get("action"))
			assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
			_, _ = w.Write([]byte(`{"result":"0x6080604052"}`))
		}))
		defer srv.Close()

		code, err := newTestEtherscanClient(srv).GetBytecode(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, code)
	})

	t.Run("returns nil for an EOA", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":"0x"}`))
		}))
		defer srv.Close()

		code, err := newTestEtherscanClient(srv).GetBytecode(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Nil(t, code)
	})

	t.Run("retries after 429 with Retry-After", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(`{"result":"0x00"}`))
		}))
		defer srv.Close()

		code, err := newTestEtherscanClient(srv).GetBytecode(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00}, code)
		assert.Equal(t, 2, calls)
	})
}

func TestEtherscanClient_GetContractMetadata(t *testing.T) {
	t.Run("verified contract", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "contract", r.URL.Query().Get("module"))
			assert.Equal(t, "getsourcecode", r.URL.Query().Get("action"))
			_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{
				"SourceCode":"contract Token {}",
				"ABI":"[]",
				"ContractName":"Token",
				"CompilerVersion":"v0.8.19",
				"ConstructorArguments":"",
				"LicenseType":"MIT",
				"Proxy":"0"
			}]}`))
		}))
		defer srv.Close()

		meta, err := newTestEtherscanClient(srv).GetContractMetadata(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.True(t, meta.IsVerified)
		assert.False(t, meta.IsProxy)
		require.NotNil(t, meta.ContractName)
		assert.Equal(t, "Token", *meta.ContractName)
		require.NotNil(t, meta.ContractABI)
		assert.Equal(t, "[]", *meta.ContractABI)
		assert.Nil(t, meta.ConstructorArguments)
	})

	t.Run("unverified contract has no ABI", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{
				"SourceCode":"",
				"ABI":"Contract source code not verified",
				"ContractName":"",
				"Proxy":"1"
			}]}`))
		}))
		defer srv.Close()

		meta, err := newTestEtherscanClient(srv).GetContractMetadata(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.False(t, meta.IsVerified)
		assert.True(t, meta.IsProxy)
		assert.Nil(t, meta.ContractABI)
		assert.Nil(t, meta.ContractName)
	})

	t.Run("empty result is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":[]}`))
		}))
		defer srv.Close()

		_, err := newTestEtherscanClient(srv).GetContractMetadata(context.Background(), "0xabc")
		assert.Error(t, err)
	})
}
