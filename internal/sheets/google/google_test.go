package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2024, "2024 Transactions"},
		{"  Transactions ", 2025, "2025 Transactions"},
		{"2023 Transactions", 2024, "2023 Transactions"},
		{"", 2024, ""},
		{"12345", 2024, "2024 12345"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, yearPrefixedName(tt.base, tt.year), "base %q", tt.base)
	}
}

func TestNewFromCredentials_Missing(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromCredentials(context.Background(), "", "Transactions", nil)
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")

	_, err = NewFromCredentials(context.Background(), "sheet-id", "Transactions", nil)
	assert.ErrorContains(t, err, "missing service account credentials")

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/non/existent/file.json")
	_, err = NewFromCredentials(context.Background(), "sheet-id", "Transactions", nil)
	assert.ErrorContains(t, err, "read service account file")
}

type fakeSheets struct {
	mu     sync.Mutex
	paths  []string
	query  []string
	bodies []gsheet.ValueRange
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var vr gsheet.ValueRange
	_ = json.Unmarshal(body, &vr)

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.query = append(f.query, r.URL.RawQuery)
	f.bodies = append(f.bodies, vr)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
		SpreadsheetId: "sheet-id",
		Updates:       &gsheet.UpdateValuesResponse{UpdatedRange: "'2024 Transactions'!A2:G2"},
	})
}

func TestAppendTransaction(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx,
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	client := New(svc, "sheet-id", "Transactions", time.UTC)
	tx := core.TransactionDetails{
		Transaction: core.Transaction{
			ID:          42,
			Type:        core.Expense,
			Amount:      1250,
			Description: "Groceries",
			Date:        time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		},
		AccountName:  "Checking",
		CategoryName: "Food",
	}

	ref, err := client.AppendTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "'2024 Transactions'!A2:G2", ref)

	require.Len(t, fake.paths, 1)
	assert.True(t, strings.HasSuffix(fake.paths[0], ":append"), fake.paths[0])
	assert.Contains(t, fake.paths[0], "2024 Transactions")
	assert.Contains(t, fake.query[0], "valueInputOption=USER_ENTERED")
	assert.Contains(t, fake.query[0], "insertDataOption=INSERT_ROWS")

	require.Len(t, fake.bodies[0].Values, 1)
	row := fake.bodies[0].Values[0]
	assert.Equal(t, []any{"2024-03-15", "expense", "Checking", "Food", "Groceries", "-12.50", "42"}, row)
}

func TestAppendTransaction_NotInitialized(t *testing.T) {
	_, err := (&Client{}).AppendTransaction(context.Background(), core.TransactionDetails{})
	assert.Error(t, err)
}
