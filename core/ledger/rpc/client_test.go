package rpc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"domain-manager/core/ledger"
	"domain-manager/core/ledger/rpc"
	"domain-manager/core/names"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// gateway answers each method with a fixed result or error object.
func gateway(t *testing.T, results map[string]string, seen chan<- rpcRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		if seen != nil {
			seen <- req
		}
		w.Header().Set("Content-Type", "application/json")
		result, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(url string) *rpc.Client {
	return rpc.NewClient(url, rpc.WithUserAgent("test-agent"), rpc.WithBackoff(time.Millisecond))
}

func TestCountOwned(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   int
	}{
		{"Number", `23`, 23},
		{"Decimal string", `"23"`, 23},
		{"Hex quantity", `"0x17"`, 23},
		{"Null is unknown", `null`, -1},
		{"Malformed is unknown", `"many"`, -1},
		{"Negative is unknown", `-3`, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := gateway(t, map[string]string{"names_countOwned": tt.result}, nil)
			n, err := newClient(srv.URL).CountOwned(context.Background(), "0xa")
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestListOwned(t *testing.T) {
	seen := make(chan rpcRequest, 1)
	srv := gateway(t, map[string]string{"names_listOwned": `["1","2"]`}, seen)

	ids, err := newClient(srv.URL).ListOwned(context.Background(), "0xa", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []names.EntityID{"1", "2"}, ids)

	req := <-seen
	require.Len(t, req.Params, 3)
	assert.JSONEq(t, `"0xa"`, string(req.Params[0]))
	assert.JSONEq(t, `10`, string(req.Params[1]))
	assert.JSONEq(t, `5`, string(req.Params[2]))
}

func TestGetRecords_SkipsNullValues(t *testing.T) {
	srv := gateway(t, map[string]string{
		"names_getRecords": `{"text.email":"a@example.com","evm":"0xa","text.url":null,"text.avatar":""}`,
	}, nil)

	records, err := newClient(srv.URL).GetRecords(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []names.Record{
		{Key: names.KeyEVM, Value: "0xa"},
		{Key: names.KeyAvatar, Value: ""},
		{Key: names.KeyEmail, Value: "a@example.com"},
	}, records)
}

func TestSetRecord_NullDeletes(t *testing.T) {
	seen := make(chan rpcRequest, 2)
	srv := gateway(t, map[string]string{"names_setRecord": `true`}, seen)
	c := newClient(srv.URL)

	require.NoError(t, c.SetRecord(context.Background(), "alice", names.KeyAvatar, nil))
	req := <-seen
	assert.JSONEq(t, `null`, string(req.Params[2]))

	require.NoError(t, c.SetRecord(context.Background(), "alice", names.KeyAvatar, ledger.Value("x")))
	req = <-seen
	assert.JSONEq(t, `"x"`, string(req.Params[2]))
}

func TestSetRecords_Batch(t *testing.T) {
	seen := make(chan rpcRequest, 1)
	srv := gateway(t, map[string]string{"names_setRecords": `true`}, seen)

	err := newClient(srv.URL).SetRecords(context.Background(), "alice", []ledger.Write{
		{Key: names.KeyAvatar, Value: ledger.Value("a")},
		{Key: names.KeyEmail},
	})
	require.NoError(t, err)

	req := <-seen
	assert.Equal(t, "names_setRecords", req.Method)
	assert.JSONEq(t, `[{"key":"text.avatar","value":"a"},{"key":"text.email","value":null}]`, string(req.Params[1]))
}

func TestReverseLookup(t *testing.T) {
	srv := gateway(t, map[string]string{"names_reverseLookup": `"alice"`}, nil)
	name, found, err := newClient(srv.URL).ReverseLookup(context.Background(), "0xa")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, names.EntityID("alice"), name)

	miss := gateway(t, map[string]string{"names_reverseLookup": `null`}, nil)
	_, found, err = newClient(miss.URL).ReverseLookup(context.Background(), "0xb")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetDomain(t *testing.T) {
	srv := gateway(t, map[string]string{
		"names_getDomain": `{"name":"alice.eth","owner":"0xABC","resolver":"0xres"}`,
	}, nil)

	d, err := newClient(srv.URL).GetDomain(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, names.Domain{ID: "alice", Name: "alice.eth", Owner: "0xabc", Resolver: "0xres"}, d)
}

func TestRemoteErrorIsRejected(t *testing.T) {
	srv := gateway(t, map[string]string{}, nil)

	err := newClient(srv.URL).SetRecord(context.Background(), "alice", names.KeyAvatar, nil)
	assert.ErrorIs(t, err, names.ErrRemoteRejected)
	code, ok := rpc.Code(err)
	assert.True(t, ok)
	assert.Equal(t, -32601, code)
}

func TestReadRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":4}`))
	}))
	defer srv.Close()

	n, err := newClient(srv.URL).CountOwned(context.Background(), "0xa")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReadGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := rpc.NewClient(srv.URL, rpc.WithRetries(2), rpc.WithBackoff(time.Millisecond))
	_, err := c.CountOwned(context.Background(), "0xa")
	assert.ErrorIs(t, err, names.ErrNetworkFailure)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).CountOwned(context.Background(), "0xa")
	assert.ErrorIs(t, err, names.ErrRemoteRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTimeoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := newClient(srv.URL).CountOwned(ctx, "0xa")
	assert.ErrorIs(t, err, names.ErrTimeout)
}
