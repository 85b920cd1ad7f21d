package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"strata/backend/internal/network"
)

type rpcCapture struct {
	ConnectionID int64          `json:"connection_id"`
	Method       string         `json:"method"`
	Params       map[string]any `json:"params"`
}

func newRPCServer(t *testing.T, hits *atomic.Int64, captured *rpcCapture, handler func(w http.ResponseWriter, req rpcCapture)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rpc/metadata", r.URL.Path)

		var req rpcCapture
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if captured != nil {
			*captured = req
		}
		hits.Add(1)
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func okHandler(w http.ResponseWriter, req rpcCapture) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"method": req.Method})
}

func newTestMetadataService(srv *httptest.Server) MetadataService {
	return NewMetadataService(network.NewClientFactoryForTest(srv.Client()), srv.URL)
}

func TestMetadataCall_UnknownMethod(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, &hits, nil, okHandler)
	svc := newTestMetadataService(srv)

	_, err := svc.Call(context.Background(), 1, "drop_tables", nil)
	require.ErrorIs(t, err, ErrInvalid)
	require.Equal(t, int64(0), hits.Load())
}

func TestMetadataCall_CachesByParamTuple(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, &hits, nil, okHandler)
	svc := newTestMetadataService(srv)
	ctx := context.Background()

	params := map[string]any{"query": "kind:well", "limit": 25, "offset": 0}
	first, err := svc.Call(ctx, 1, MethodExecuteQuery, params)
	require.NoError(t, err)

	second, err := svc.Call(ctx, 1, MethodExecuteQuery, params)
	require.NoError(t, err)
	require.JSONEq(t, string(first), string(second))
	require.Equal(t, int64(1), hits.Load())

	// Any change to the tuple misses the cache.
	_, err = svc.Call(ctx, 1, MethodExecuteQuery, map[string]any{"query": "kind:well", "limit": 25, "offset": 25})
	require.NoError(t, err)
	require.Equal(t, int64(2), hits.Load())

	// So does another connection with identical params.
	_, err = svc.Call(ctx, 2, MethodExecuteQuery, params)
	require.NoError(t, err)
	require.Equal(t, int64(3), hits.Load())
}

func TestMetadataCall_MutationInvalidatesConnection(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, &hits, nil, okHandler)
	svc := newTestMetadataService(srv)
	ctx := context.Background()

	params := map[string]any{"query": "kind:well"}
	_, err := svc.Call(ctx, 1, MethodExecuteQuery, params)
	require.NoError(t, err)
	_, err = svc.Call(ctx, 2, MethodExecuteQuery, params)
	require.NoError(t, err)
	require.Equal(t, int64(2), hits.Load())

	_, err = svc.Call(ctx, 1, MethodDeleteRecord, map[string]any{"id": "well:123"})
	require.NoError(t, err)
	require.Equal(t, int64(3), hits.Load())

	// Connection 1 was flushed, connection 2 was not.
	_, err = svc.Call(ctx, 1, MethodExecuteQuery, params)
	require.NoError(t, err)
	require.Equal(t, int64(4), hits.Load())

	_, err = svc.Call(ctx, 2, MethodExecuteQuery, params)
	require.NoError(t, err)
	require.Equal(t, int64(4), hits.Load())
}

func TestMetadataCall_HealthNeverCached(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, &hits, nil, okHandler)
	svc := newTestMetadataService(srv)
	ctx := context.Background()

	_, err := svc.Call(ctx, 1, MethodCheckHealth, nil)
	require.NoError(t, err)
	_, err = svc.Call(ctx, 1, MethodCheckHealth, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), hits.Load())
}

func TestMetadataCall_NormalizesRecordID(t *testing.T) {
	var hits atomic.Int64
	var captured rpcCapture
	srv := newRPCServer(t, &hits, &captured, okHandler)
	svc := newTestMetadataService(srv)

	params := map[string]any{"id": "opendes:well:123:1234567890123"}
	_, err := svc.Call(context.Background(), 1, MethodGetRecordDeepDive, params)
	require.NoError(t, err)
	require.Equal(t, "opendes:well:123", captured.Params["id"])

	// Caller's map is untouched.
	require.Equal(t, "opendes:well:123:1234567890123", params["id"])
}

func TestMetadataCall_SearchIDPassesThrough(t *testing.T) {
	var hits atomic.Int64
	var captured rpcCapture
	srv := newRPCServer(t, &hits, &captured, okHandler)
	svc := newTestMetadataService(srv)

	_, err := svc.Call(context.Background(), 1, MethodExecuteQuery, map[string]any{"id": "opendes:well:123:1234567890123"})
	require.NoError(t, err)
	require.Equal(t, "opendes:well:123:1234567890123", captured.Params["id"])
}

func TestMetadataCall_UpstreamDetail(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, &hits, nil, func(w http.ResponseWriter, req rpcCapture) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "partition opendes is not reachable"})
	})
	svc := newTestMetadataService(srv)

	_, err := svc.Call(context.Background(), 1, MethodExecuteQuery, nil)
	require.ErrorIs(t, err, ErrUpstream)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	require.Equal(t, "partition opendes is not reachable", upstream.Detail)

	// Failures are not cached.
	_, _ = svc.Call(context.Background(), 1, MethodExecuteQuery, nil)
	require.Equal(t, int64(2), hits.Load())
}

func TestMetadataCall_DetailTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	var hits atomic.Int64
	srv := newRPCServer(t, &hits, nil, func(w http.ResponseWriter, req rpcCapture) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": long})
	})
	svc := newTestMetadataService(srv)

	_, err := svc.Call(context.Background(), 1, MethodExecuteQuery, nil)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Len(t, []rune(upstream.Detail), maxErrorDetail+3)
	require.True(t, strings.HasSuffix(upstream.Detail, "..."))
}

func TestMetadataCall_DetailFallbacks(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error": "boom"}`, "boom"},
		{"message field", `{"message": "nope"}`, "nope"},
		{"raw body", "plain text failure\n", "plain text failure"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int64
			srv := newRPCServer(t, &hits, nil, func(w http.ResponseWriter, req rpcCapture) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(tc.body))
			})
			svc := newTestMetadataService(srv)

			_, err := svc.Call(context.Background(), 1, MethodExecuteQuery, nil)
			var upstream *UpstreamError
			require.ErrorAs(t, err, &upstream)
			require.Equal(t, tc.want, upstream.Detail)
		})
	}
}

func TestMetadataInvalidate_NoMatchingEntries(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, &hits, nil, okHandler)
	svc := newTestMetadataService(srv)

	svc.Invalidate(42)

	var notFound *UpstreamError
	_, err := svc.Call(context.Background(), 42, MethodExecuteQuery, nil)
	require.NoError(t, err)
	require.False(t, errors.As(err, &notFound))
}
