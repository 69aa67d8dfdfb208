package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sales-insights/internal/config"
	"github.com/sells-group/sales-insights/internal/pipeline"
	"github.com/sells-group/sales-insights/internal/store"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "analyze", "uploads", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "sales-insights", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	format := analyzeCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "json", format.DefValue)

	for _, name := range []string{"publish", "no-store"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s flag", name)
	}
}

func TestUploadsListCommand_Flags(t *testing.T) {
	flag := uploadsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
}

func sampleResponse(t *testing.T) *pipeline.Response {
	t.Helper()
	p, err := pipeline.FromConfig(config.AnalysisConfig{
		SimilarityThreshold: 60,
		FallbackMargin:      0.30,
		AOVUplift:           1.15,
		Currency:            "грн",
		Margins:             config.DefaultMargins(),
	})
	require.NoError(t, err)

	resp, err := p.Run(t.Context(), pipeline.Upload{
		Filename: "sales.csv",
		Data:     strings.NewReader("qty,Ціна\n2,50\n1,100\n"),
	})
	require.NoError(t, err)
	return resp
}

func TestWriteResponse_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResponse(&buf, sampleResponse(t), "json"))

	out := buf.String()
	assert.Contains(t, out, `"message": "Файл успішно завантажено та оброблено!"`)
	assert.Contains(t, out, `"qty": "Quantity"`)
	assert.Contains(t, out, `"insights": [`)
}

func TestWriteResponse_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResponse(&buf, sampleResponse(t), "yaml"))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, pipeline.SuccessMessage, decoded["message"])
	assert.Equal(t, map[string]any{"qty": "Quantity", "Ціна": "Price_Per_Unit"}, decoded["mapped_columns"])
	assert.Contains(t, buf.String(), "mapped_columns:\n  qty: Quantity\n")
}

func TestWriteResponse_UnknownFormat(t *testing.T) {
	err := writeResponse(&bytes.Buffer{}, sampleResponse(t), "xml")
	assert.Error(t, err)
}

func TestFormatUploadsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	uploads := []store.Upload{
		{
			ID:           uuid.MustParse("abc12345-6789-4000-8000-000000000000"),
			Filename:     "march.xlsx",
			Rows:         120,
			TotalRevenue: 4520.5,
			Imputation:   "category_margin",
			CreatedAt:    now,
		},
		{
			ID:         uuid.MustParse("def12345-6789-4000-8000-000000000000"),
			Filename:   "april.csv",
			Rows:       3,
			Imputation: "none",
			CreatedAt:  now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatUploadsList(&buf, uploads)

	out := buf.String()
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "REVENUE")
	assert.Contains(t, out, "abc12345")
	assert.Contains(t, out, "march.xlsx")
	assert.Contains(t, out, "4520.50")
	assert.Contains(t, out, "category_margin")
	assert.Contains(t, out, "2026-06-15 10:30")
	assert.Contains(t, out, "april.csv")
}

func TestFormatUpload(t *testing.T) {
	var buf bytes.Buffer
	formatUpload(&buf, &store.Upload{
		ID:       uuid.MustParse("abc12345-6789-4000-8000-000000000000"),
		Filename: "march.xlsx",
		Rows:     2,
		Columns:  []string{"Quantity", "Price_Per_Unit"},
		Insights: []string{"✅ ok"},
	})

	out := buf.String()
	assert.Contains(t, out, "march.xlsx")
	assert.Contains(t, out, "Quantity, Price_Per_Unit")
	assert.Contains(t, out, "Insights:\n  ✅ ok")
}

func TestInitPublishers(t *testing.T) {
	c := &config.Config{Publish: config.PublishConfig{Dir: "data", FileName: "standard_sales_data.csv"}}
	pubs := initPublishers(c)
	require.Len(t, pubs, 1)
	assert.Equal(t, "file", pubs[0].Name())

	c.Notion = config.NotionConfig{Token: "secret", UploadDB: "db-1", RateLimit: 3}
	pubs = initPublishers(c)
	require.Len(t, pubs, 2)
	assert.Equal(t, "notion", pubs[1].Name())
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: t.TempDir() + "/uploads.db"}}
	t.Cleanup(func() { cfg = nil })

	st, err := initStore(t.Context())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	uploads, err := st.ListUploads(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, uploads)
}
