package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"docextract/internal/cleaner"
	"docextract/internal/extraction"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9xYz/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9xYz", id)

	_, err = extractSpreadsheetID("https://example.com/not-a-sheet")
	assert.Error(t, err)
}

func sampleResults() []*extraction.Result {
	ok := &extraction.Result{
		Success:    true,
		Confidence: 0.95,
		CleaningStats: cleaner.Stats{
			CleanedLength: 1200,
			Corrections:   3,
			RemovedItems:  cleaner.RemovedItems{FolioReferences: 2},
		},
		Metadata: extraction.Metadata{
			RunID:            "run-1",
			FileName:         "escritura.pdf",
			PageCount:        4,
			ProcessingTimeMs: 850,
			HealthScore:      72.5,
			ProcessingMetrics: extraction.ProcessingMetrics{
				SuccessfulMethod: "direct_text",
			},
		},
	}
	emergency := &extraction.Result{
		Success:    true,
		Confidence: extraction.EmergencyConfidence,
		Metadata: extraction.Metadata{
			RunID:          "run-2",
			FileName:       "ilegible.pdf",
			Emergency:      true,
			HealthScore:    extraction.EmergencyHealthScore,
			FailureReasons: []string{"all 4 extraction strategies failed", "direct_text: empty"},
			ProcessingMetrics: extraction.ProcessingMetrics{
				SuccessfulMethod: extraction.MethodEmergency,
			},
		},
	}
	return []*extraction.Result{ok, emergency}
}

func TestNewReportRow(t *testing.T) {
	results := sampleResults()

	row := NewReportRow(results[0], "19-10-2026 10:00:00")
	assert.Equal(t, ReportRow{
		FileName:         "escritura.pdf",
		RunID:            "run-1",
		Status:           StatusOK,
		Method:           "direct_text",
		Confidence:       0.95,
		HealthScore:      72.5,
		Pages:            4,
		Characters:       1200,
		FoliosRemoved:    2,
		Corrections:      3,
		ProcessingTimeMs: 850,
		ProcessedAt:      "19-10-2026 10:00:00",
	}, row)
	assert.Len(t, row.Values(), len(columnHeaders))

	row = NewReportRow(results[1], "")
	assert.Equal(t, StatusEmergency, row.Status)
	assert.Equal(t, "all 4 extraction strategies failed; direct_text: empty", row.FailureReasons)
}

// fakeSheetsAPI serves the three endpoints WriteResults touches.
type fakeSheetsAPI struct {
	mu         sync.Mutex
	hasHeaders bool
	updated    [][]interface{}
	appended   [][]interface{}
	batches    int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, ":append"):
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":batchUpdate"):
		f.batches++
		_, _ = w.Write([]byte(`{"replies":[{"addSheet":{"properties":{"sheetId":9,"title":"Extracciones"}}}]}`))
	case strings.Contains(path, "/values/") && r.Method == http.MethodPut:
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updated = vr.Values
		_, _ = w.Write([]byte(`{}`))
	case strings.Contains(path, "/values/"):
		if f.hasHeaders {
			_, _ = w.Write([]byte(`{"values":[["Archivo"]]}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	default:
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"sheetId":7,"title":"Extractions"}}]}`))
	}
}

func newTestService(t *testing.T, api *fakeSheetsAPI) *Service {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewServiceWithClient(svc, "sheet-id")
}

func TestWriteResultsAppendsRows(t *testing.T) {
	api := &fakeSheetsAPI{hasHeaders: true}
	s := newTestService(t, api)

	require.NoError(t, s.WriteResults(context.Background(), sampleResults(), "Extractions"))

	require.Len(t, api.appended, 2)
	assert.Equal(t, "escritura.pdf", api.appended[0][0])
	assert.Equal(t, StatusEmergency, api.appended[1][2])
	assert.Nil(t, api.updated, "existing headers must be kept")
	assert.Zero(t, api.batches)
}

func TestWriteResultsCreatesSheetAndHeaders(t *testing.T) {
	api := &fakeSheetsAPI{}
	s := newTestService(t, api)

	require.NoError(t, s.WriteResults(context.Background(), sampleResults(), "Extracciones"))

	require.Len(t, api.updated, 1)
	assert.Equal(t, "Archivo", api.updated[0][0])
	assert.Len(t, api.updated[0], len(columnHeaders))
	assert.Equal(t, 2, api.batches, "add sheet and format headers")
	assert.Len(t, api.appended, 2)
}

func TestWriteResultsNothingToWrite(t *testing.T) {
	s := NewServiceWithClient(nil, "sheet-id")
	assert.NoError(t, s.WriteResults(context.Background(), nil, "Extractions"))
}
