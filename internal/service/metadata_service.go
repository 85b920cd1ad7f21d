package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"strata/backend/internal/config"
	"strata/backend/internal/logger"
	"strata/backend/internal/network"
	"strata/backend/internal/osduid"
)

// Metadata RPC methods understood by the upstream proxy.
const (
	MethodDiscoverAssets         = "discover_assets"
	MethodExecuteQuery           = "execute_query"
	MethodExecuteCursorQuery     = "execute_cursor_query"
	MethodGetRecordDeepDive      = "get_record_deep_dive"
	MethodGetGroups              = "get_groups"
	MethodGetLegalTags           = "get_legal_tags"
	MethodListWorkflows          = "list_workflows"
	MethodListPolicies           = "list_policies"
	MethodGetWellDomainOverview  = "get_well_domain_overview"
	MethodGetSeismicOverview     = "get_seismic_domain_overview"
	MethodCheckHealth            = "check_health"
	MethodDownloadFile           = "download_file"
	MethodDeleteRecord           = "delete_record"
	MethodUpdateRecord           = "update_record"
)

var knownMethods = map[string]struct{}{
	MethodDiscoverAssets:        {},
	MethodExecuteQuery:          {},
	MethodExecuteCursorQuery:    {},
	MethodGetRecordDeepDive:     {},
	MethodGetGroups:             {},
	MethodGetLegalTags:          {},
	MethodListWorkflows:         {},
	MethodListPolicies:          {},
	MethodGetWellDomainOverview: {},
	MethodGetSeismicOverview:    {},
	MethodCheckHealth:           {},
	MethodDownloadFile:          {},
	MethodDeleteRecord:          {},
	MethodUpdateRecord:          {},
}

// IsKnownMethod reports whether method is part of the RPC surface.
func IsKnownMethod(method string) bool {
	_, ok := knownMethods[method]
	return ok
}

// Methods that mutate the upstream collection. Never cached, and every
// cached entry of the connection is dropped after a successful call.
var mutatingMethods = map[string]struct{}{
	MethodDeleteRecord: {},
	MethodUpdateRecord: {},
}

// Methods whose result must always be fresh even though they do not
// mutate anything.
var uncachedMethods = map[string]struct{}{
	MethodCheckHealth:  {},
	MethodDownloadFile: {},
}

// Methods that address a single record and therefore need the
// version-stamped search id normalized before the call.
var recordScopedMethods = map[string]struct{}{
	MethodGetRecordDeepDive: {},
	MethodDeleteRecord:      {},
	MethodUpdateRecord:      {},
	MethodDownloadFile:      {},
}

// MetadataService is the generic metadata RPC adapter. Results of
// read methods are cached keyed by the full parameter tuple, so
// returning to an identical view state is served without a network
// round-trip until a mutation on the same connection invalidates it.
type MetadataService interface {
	Call(ctx context.Context, connectionID int64, method string, params map[string]any) (json.RawMessage, error)
	Invalidate(connectionID int64)
}

type metadataService struct {
	clientFactory *network.ClientFactory
	baseURL       string

	mu    sync.RWMutex
	cache map[string]json.RawMessage
	group singleflight.Group
}

// NewMetadataService creates a metadata RPC adapter against baseURL.
func NewMetadataService(clientFactory *network.ClientFactory, baseURL string) MetadataService {
	return &metadataService{
		clientFactory: clientFactory,
		baseURL:       strings.TrimRight(baseURL, "/"),
		cache:         make(map[string]json.RawMessage),
	}
}

func (s *metadataService) Call(ctx context.Context, connectionID int64, method string, params map[string]any) (json.RawMessage, error) {
	if !IsKnownMethod(method) {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalid, method)
	}
	params = normalizeParams(method, params)

	if _, mutating := mutatingMethods[method]; mutating {
		result, err := s.callUpstream(ctx, connectionID, method, params)
		if err != nil {
			return nil, err
		}
		s.Invalidate(connectionID)
		return result, nil
	}

	if _, uncached := uncachedMethods[method]; uncached {
		return s.callUpstream(ctx, connectionID, method, params)
	}

	key, err := cacheKey(connectionID, method, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.mu.RLock()
	cached, hit := s.cache[key]
	s.mu.RUnlock()
	if hit {
		logger.Debug("metadata cache hit", "module", "service", "action", "fetch", "resource", "metadata", "result", "ok", "connection_id", connectionID, "method", method, "cache", "hit")
		return cached, nil
	}

	// Identical concurrent requests share one upstream call.
	result, err, _ := s.group.Do(key, func() (any, error) {
		fresh, err := s.callUpstream(ctx, connectionID, method, params)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = fresh
		s.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

// Invalidate drops every cached entry belonging to connectionID.
func (s *metadataService) Invalidate(connectionID int64) {
	prefix := strconv.FormatInt(connectionID, 10) + "|"
	s.mu.Lock()
	for key := range s.cache {
		if strings.HasPrefix(key, prefix) {
			delete(s.cache, key)
		}
	}
	s.mu.Unlock()
	logger.Debug("metadata cache invalidated", "module", "service", "action", "invalidate", "resource", "metadata", "result", "ok", "connection_id", connectionID)
}

// normalizeParams copies params and rewrites the record id of
// record-scoped methods: search results carry a version stamp that
// single-record endpoints reject. List/search params pass unchanged.
func normalizeParams(method string, params map[string]any) map[string]any {
	if _, scoped := recordScopedMethods[method]; !scoped {
		return params
	}
	copied := make(map[string]any, len(params))
	for k, v := range params {
		copied[k] = v
	}
	if rawID, ok := copied["id"].(string); ok {
		copied["id"] = osduid.Normalize(rawID)
	}
	return copied
}

// cacheKey builds the cache key from the full parameter tuple.
// encoding/json sorts map keys, so the encoding is canonical.
func cacheKey(connectionID int64, method string, params map[string]any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(connectionID, 10) + "|" + method + "|" + string(encoded), nil
}

type rpcRequest struct {
	ConnectionID int64          `json:"connection_id"`
	Method       string         `json:"method"`
	Params       map[string]any `json:"params,omitempty"`
}

func (s *metadataService) callUpstream(ctx context.Context, connectionID int64, method string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{ConnectionID: connectionID, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rpc/metadata", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.StrataUserAgent)

	client := s.clientFactory.NewHTTPClient(ctx, 60*time.Second)
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("metadata rpc failed", "module", "service", "action", "fetch", "resource", "metadata", "result", "failed", "connection_id", connectionID, "method", method, "error", err)
		return nil, &UpstreamError{Method: method, Detail: truncateDetail(err.Error())}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Method: method, StatusCode: resp.StatusCode, Detail: truncateDetail(err.Error())}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := extractDetail(payload)
		logger.Warn("metadata rpc error response", "module", "service", "action", "fetch", "resource", "metadata", "result", "failed", "connection_id", connectionID, "method", method, "status_code", resp.StatusCode, "detail", detail)
		return nil, &UpstreamError{Method: method, StatusCode: resp.StatusCode, Detail: truncateDetail(detail)}
	}

	logger.Debug("metadata rpc ok", "module", "service", "action", "fetch", "resource", "metadata", "result", "ok", "connection_id", connectionID, "method", method)
	return json.RawMessage(payload), nil
}

// extractDetail pulls a structured message out of an error body,
// preferring the proxy's "detail" field, then common fallbacks.
func extractDetail(payload []byte) string {
	var body struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		switch {
		case body.Detail != "":
			return body.Detail
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		}
	}
	return strings.TrimSpace(string(payload))
}
