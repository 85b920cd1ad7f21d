package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type stubMetadataService struct {
	result json.RawMessage
	err    error

	lastMethod string
	lastParams map[string]any
}

func (s *stubMetadataService) Call(_ context.Context, _ int64, method string, params map[string]any) (json.RawMessage, error) {
	s.lastMethod = method
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubMetadataService) Invalidate(int64) {}

func newExportContext(t *testing.T, method, target string, body []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestExportSelection_RoundTrip(t *testing.T) {
	records := []map[string]any{
		{
			"id":   "opendes:master-data--Well:1001",
			"kind": "osdu:wks:master-data--Well:1.0.0",
			"data": map[string]any{
				"FacilityName": "Well A-1",
				"Depth":        float64(2450),
			},
		},
		{
			"id":   "opendes:master-data--Well:1002",
			"kind": "osdu:wks:master-data--Well:1.0.0",
			"data": map[string]any{
				"FacilityName": "Well B-7",
				"Operators":    []any{"Acme", "Borealis"},
			},
		},
	}
	body, err := json.Marshal(exportSelectionRequest{Records: records})
	require.NoError(t, err)

	c, rec := newExportContext(t, http.MethodPost, "/api/export", body)
	h := NewExportHandler(&stubMetadataService{})
	require.NoError(t, h.ExportSelection(c))
	require.Equal(t, http.StatusOK, rec.Code)

	disposition := rec.Header().Get(echo.HeaderContentDisposition)
	require.Contains(t, disposition, "attachment")
	require.Contains(t, disposition, ".json")

	var envelope struct {
		ExportedAt string          `json:"exportedAt"`
		Count      int             `json:"count"`
		Records    json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.ExportedAt)
	require.Equal(t, len(records), envelope.Count)

	var roundTripped []map[string]any
	require.NoError(t, json.Unmarshal(envelope.Records, &roundTripped))
	require.Equal(t, records, roundTripped)
}

func TestExportSelection_EmptyRecords(t *testing.T) {
	body, err := json.Marshal(exportSelectionRequest{})
	require.NoError(t, err)

	c, rec := newExportContext(t, http.MethodPost, "/api/export", body)
	h := NewExportHandler(&stubMetadataService{})
	require.NoError(t, h.ExportSelection(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "records are required", resp["error"])
}

func TestExport_RoundTrip(t *testing.T) {
	results := []map[string]any{
		{"id": "opendes:master-data--Well:1001", "kind": "osdu:wks:master-data--Well:1.0.0"},
		{"id": "opendes:master-data--Well:1002", "kind": "osdu:wks:master-data--Well:1.0.0"},
	}
	upstream, err := json.Marshal(map[string]any{"results": results, "totalCount": 2})
	require.NoError(t, err)

	stub := &stubMetadataService{result: upstream}
	h := NewExportHandler(stub)

	c, rec := newExportContext(t, http.MethodGet, "/api/connections/7/export?kind=osdu:wks:master-data--Well:1.0.0&q=A-1", nil)
	c.SetParamNames("id")
	c.SetParamValues("7")
	require.NoError(t, h.Export(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, "execute_query", stub.lastMethod)
	require.Equal(t, "osdu:wks:master-data--Well:1.0.0", stub.lastParams["kind"])
	require.Equal(t, "A-1", stub.lastParams["query"])
	require.Equal(t, ExportLimit, stub.lastParams["limit"])
	require.Equal(t, 0, stub.lastParams["offset"])

	disposition := rec.Header().Get(echo.HeaderContentDisposition)
	require.True(t, strings.HasPrefix(disposition, `attachment; filename="strata-export-`))

	var envelope struct {
		Kind    string          `json:"kind"`
		Query   string          `json:"query"`
		Count   int             `json:"count"`
		Records json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "osdu:wks:master-data--Well:1.0.0", envelope.Kind)
	require.Equal(t, "A-1", envelope.Query)
	require.Equal(t, 2, envelope.Count)

	var roundTripped []map[string]any
	require.NoError(t, json.Unmarshal(envelope.Records, &roundTripped))
	require.Equal(t, results, roundTripped)
}
