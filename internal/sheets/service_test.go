package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"factures/pkg/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0", "1AbC-dEf_123", false},
		{"https://docs.google.com/spreadsheets/d/1AbC-dEf_123", "1AbC-dEf_123", false},
		{"1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", false},
		{"https://example.com/not-a-sheet", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		got, err := extractSpreadsheetID(tc.url)
		if tc.wantErr {
			assert.Error(t, err, tc.url)
			continue
		}
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got)
	}
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
	assert.Equal(t, "AZ", columnLetter(52))
	assert.Equal(t, "Factures!A1:W1", columnRange("Factures", 1))
	assert.Equal(t, "Factures!A:W", columnRange("Factures", 0))
}

// fakeSheets records the calls the service makes against the Sheets REST API.
type fakeSheets struct {
	mu       sync.Mutex
	header   [][]any
	appended [][]any
	batches  int
}

func (f *fakeSheets) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := r.URL.Path
		w.Header().Set("Content-Type", "application/json")

		var body struct {
			Values [][]any `json:"values"`
		}
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
			f.batches++
			_, _ = w.Write([]byte(`{"replies":[{"addSheet":{"properties":{"sheetId":7,"title":"Factures"}}}]}`))
		case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.appended = append(f.appended, body.Values...)
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.header = body.Values
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
			_, _ = w.Write([]byte(`{"values":[]}`))
		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-id","sheets":[]}`))
		default:
			http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
		}
	}
}

func TestWriteResults(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	svc, err := NewSheetsServiceWithOptions(context.Background(),
		"https://docs.google.com/spreadsheets/d/sheet-id/edit",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	svc.log = zerolog.Nop()

	number := "F-1"
	results := []models.ProcessingResult{
		{Filename: "a.pdf", Status: models.StatusOK, Record: &models.InvoiceRecord{InvoiceNumber: &number}},
		{Filename: "b.png", Status: models.StatusFailed, Err: errors.New("boom")},
	}
	require.NoError(t, svc.WriteResults(context.Background(), results, ""))

	fake.mu.Lock()
	defer fake.mu.Unlock()

	require.Len(t, fake.header, 1)
	assert.Len(t, fake.header[0], len(models.ResultColumns))
	assert.Equal(t, "File", fake.header[0][0])
	assert.Equal(t, 2, fake.batches, "sheet created then header formatted")

	require.Len(t, fake.appended, 2)
	assert.Equal(t, "a.pdf", fake.appended[0][0])
	assert.Equal(t, "F-1", fake.appended[0][2])
	assert.Equal(t, "boom", fake.appended[1][len(models.ResultColumns)-1])
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	_, err := NewSheetsService(context.Background(), "https://docs.google.com/spreadsheets/d/abc/edit", nil)
	assert.Error(t, err)
}
