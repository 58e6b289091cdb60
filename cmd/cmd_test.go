package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factures/internal/config"
	"factures/pkg/models"
)

// execute runs the root command with args after resetting every flag, since
// cobra keeps flag values between runs.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	appConfig = &config.Config{ExtractEngine: "openai", ExtractMaxRetries: 1, BatchWorkers: 2}
	t.Cleanup(func() { appConfig = nil })

	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func TestNormalizeCommand_Stdin(t *testing.T) {
	raw := "```json\n" + `{
		"invoice_number": "F-2024-001",
		"invoice_date": "10/01/2024",
		"currency": "dt",
		"amount_ttc": "1 190,000",
		"payment_terms": "Net 30",
		"payment_method": "Chèque",
		"iban": "TN59 1000 6035 0000 0123 4567"
	}` + "\n```"

	out, err := execute(t, raw, "normalize", "-", "--model", "gpt-4o-mini")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "F-2024-001", rec["invoice_number"])
	assert.Equal(t, "2024-01-10", rec["invoice_date"])
	assert.Equal(t, "TND", rec["currency"])
	assert.Equal(t, 1190.0, rec["amount_ttc"])
	assert.Equal(t, "cheque", rec["payment_method"])
	assert.Equal(t, "10 006 0350000012345 67", rec["rib"])
	assert.Equal(t, "2024-02-09", rec["due_date"])
	assert.Equal(t, true, rec["due_date_exists"])
	assert.Equal(t, "gpt-4o-mini", rec["model"])
	assert.Nil(t, rec["supplier_name"])
}

func TestNormalizeCommand_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(rawPath, []byte(`{"invoice_date": "2024-01-10"}`), 0o600))
	outPath := filepath.Join(dir, "record.json")

	out, err := execute(t, "", "normalize", rawPath, "--default-due-days", "15", "--source", "facture.pdf", "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var rec models.InvoiceRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, "2024-01-25", rec.DueDate.String())
	assert.True(t, filepath.IsAbs(rec.SourcePath))
	assert.Equal(t, "facture.pdf", filepath.Base(rec.SourcePath))
}

func TestNormalizeCommand_Malformed(t *testing.T) {
	_, err := execute(t, "pas de JSON ici", "normalize", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usable field map")
}

func TestDuedateCommand(t *testing.T) {
	out, err := execute(t, "", "duedate", "--invoice-date", "2024-01-31", "--terms", "30 jours fin de mois")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01\n", out)

	out, err = execute(t, "", "duedate", "--invoice-date", "10/01/2024", "--terms", "Net 30", "--json")
	require.NoError(t, err)
	var got DueDateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-01-10", got.InvoiceDate)
	assert.Equal(t, "2024-02-09", *got.DueDate)
	assert.Equal(t, "relative", got.Rule)

	_, err = execute(t, "", "duedate", "--invoice-date", "2024-01-10", "--terms", "à convenir")
	assert.Error(t, err)

	_, err = execute(t, "", "duedate", "--invoice-date", "demain", "--terms", "Net 30")
	assert.Error(t, err)
}

func TestExtractCommand_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facture.docx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := execute(t, "", "extract", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document")
}

func TestExtractCommand_MissingAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facture.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o600))

	_, err := execute(t, "", "extract", path)
	assert.EqualError(t, err, "OPENAI_API_KEY is required")
}

func TestFindDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.JPG", "notes.txt", "sub/c.webp", "sub/d.gif"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}

	files, err := findDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.JPG"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "sub", "c.webp"),
	}, files)
}

func TestProcessDocuments(t *testing.T) {
	files := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	var calls atomic.Int32

	fn := func(_ context.Context, path string) (*models.InvoiceRecord, error) {
		calls.Add(1)
		if path == "c.pdf" {
			return nil, errors.New("quota exceeded")
		}
		number := strings.TrimSuffix(path, ".pdf")
		return &models.InvoiceRecord{InvoiceNumber: &number, SourcePath: path}, nil
	}

	var progress bytes.Buffer
	results := processDocuments(context.Background(), files, 3, fn, &progress, zerolog.Nop())

	require.Len(t, results, len(files))
	assert.EqualValues(t, len(files), calls.Load())
	for i, r := range results {
		assert.Equal(t, files[i], r.Filename, "results keep input order")
	}
	assert.Equal(t, models.StatusFailed, results[2].Status)
	assert.EqualError(t, results[2].Err, "quota exceeded")
	assert.Equal(t, models.StatusOK, results[4].Status)
	assert.Equal(t, "e", *results[4].Record.InvoiceNumber)

	ok, failed := countResults(results)
	assert.Equal(t, 4, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, len(files), strings.Count(progress.String(), "\n"))
	assert.Contains(t, progress.String(), "[5/5]")
}

func TestProcessDocuments_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn := func(context.Context, string) (*models.InvoiceRecord, error) {
		t.Fatal("canceled runs never call the engine")
		return nil, nil
	}
	results := processDocuments(ctx, []string{"a.pdf", "b.pdf"}, 0, fn, &bytes.Buffer{}, zerolog.Nop())
	for _, r := range results {
		assert.Equal(t, models.StatusSkipped, r.Status)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestBatchCommand_EmptyFolder(t *testing.T) {
	out, err := execute(t, "", "batch", t.TempDir(), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "No supported files")

	_, err = execute(t, "", "batch", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}


func TestCreateContext_CarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).With().Str("component", "batch").Logger()

	ctx, cancel := createContext(time.Minute, log)
	defer cancel()

	zerolog.Ctx(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"batch"`)
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}
