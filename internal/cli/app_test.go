package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dompet/internal/client"
	"dompet/internal/config"
	"dompet/internal/core"
)

type fakeAPI struct {
	items     []core.LedgerItem
	listErr   error
	createErr error
	created   []client.CreateRequest
	baseURL   string
}

func (f *fakeAPI) List(context.Context) ([]core.LedgerItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeAPI) Create(_ context.Context, req client.CreateRequest) (core.LedgerItem, error) {
	if f.createErr != nil {
		return core.LedgerItem{}, f.createErr
	}
	f.created = append(f.created, req)
	item := core.LedgerItem{ID: "new", Name: req.Name, Description: req.Description, Datetime: req.Datetime, Price: core.AmountOf(req.Price)}
	f.items = append([]core.LedgerItem{item}, f.items...)
	return item, nil
}

func newTestApp(api *fakeAPI) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := NewApp(&stdout, &stderr, config.ClientConfig{
		APIURL:   "http://localhost:4000/api",
		Timezone: "UTC",
		NoColor:  true,
	})
	app.NewAPI = func(baseURL string) API {
		api.baseURL = baseURL
		return api
	}
	app.Now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return app, &stdout, &stderr
}

func sampleItems() []core.LedgerItem {
	return []core.LedgerItem{
		{ID: "1", Name: "Salary", Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Price: core.AmountOf(decimal.NewFromInt(100))},
		{ID: "2", Name: "Lunch", Description: "with team", Datetime: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Price: core.AmountOf(decimal.NewFromInt(-30))},
	}
}

func TestListRendersLedger(t *testing.T) {
	app, stdout, _ := newTestApp(&fakeAPI{items: sampleItems()})

	code := app.Run(context.Background(), []string{"list"})
	require.Equal(t, ExitOK, code)

	want := "Rp 70\n" +
		strings.Repeat("─", 48) + "\n" +
		"Salary  Rp 100  1/1/2024, 12:00:00 am\n" +
		"Lunch    Rp 30  2/1/2024, 12:00:00 am\n" +
		"  with team\n"
	assert.Equal(t, want, stdout.String())
}

func TestListWithColor(t *testing.T) {
	var out bytes.Buffer
	RenderLedger(&out, core.BuildLedger(sampleItems(), time.UTC), true)
	assert.Contains(t, out.String(), ansiRed+" Rp 30"+ansiReset)
	assert.Contains(t, out.String(), ansiGreen+"Rp 100"+ansiReset)
}

func TestListEmpty(t *testing.T) {
	app, stdout, _ := newTestApp(&fakeAPI{})
	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"list"}))
	assert.Contains(t, stdout.String(), "Rp 0\n")
	assert.Contains(t, stdout.String(), "No transactions yet.")
}

func TestListFailure(t *testing.T) {
	app, stdout, stderr := newTestApp(&fakeAPI{listErr: errors.New("connection refused")})
	code := app.Run(context.Background(), []string{"list"})
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, "error: Failed to fetch transactions: connection refused\n", stderr.String())
}

func TestAddParseFailureSendsNothing(t *testing.T) {
	cases := map[string]struct {
		args []string
		msg  string
	}{
		"no price":   {[]string{"add", "Hello world"}, "Please enter a valid price format"},
		"no label":   {[]string{"add", "-Rp 60.000"}, "Please enter a description after the price"},
		"bad number": {[]string{"add", "+Rp 1,2,3 Bad"}, "Invalid price value"},
		"empty":      {[]string{"add"}, "Please fill in all required fields"},
		"bad -at":    {[]string{"add", "-at", "soon", "-Rp 5 Tea"}, "Invalid datetime format"},
		"lowercase":  {[]string{"add", "rp 100 x"}, "Please enter a valid price format"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{}
			app, _, stderr := newTestApp(api)
			code := app.Run(context.Background(), tc.args)
			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, stderr.String(), tc.msg)
			assert.Empty(t, api.created, "no request may be sent on parse failure")
		})
	}
}

func TestAdd(t *testing.T) {
	api := &fakeAPI{items: sampleItems()}
	app, stdout, _ := newTestApp(api)
	app.Config.Timezone = "Asia/Jakarta"

	code := app.Run(context.Background(), []string{"add", "-d", "new rig", "-at", "2024-01-02T15:04", "-Rp 60.000 PC Gaming"})
	require.Equal(t, ExitOK, code)
	require.Len(t, api.created, 1)

	got := api.created[0]
	assert.Equal(t, "PC Gaming", got.Name)
	assert.Equal(t, "new rig", got.Description)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(-60000)))
	assert.True(t, got.Datetime.Equal(time.Date(2024, 1, 2, 8, 4, 0, 0, time.UTC)))
	assert.Contains(t, stdout.String(), "Rp -59,930")
}

func TestAddSplitArgsAndDefaultTime(t *testing.T) {
	api := &fakeAPI{}
	app, _, _ := newTestApp(api)

	code := app.Run(context.Background(), []string{"-api", "http://example.test/api", "add", "+Rp", "1.000.000", "Salary"})
	require.Equal(t, ExitOK, code)
	require.Len(t, api.created, 1)
	assert.Equal(t, "http://example.test/api", api.baseURL)
	assert.Equal(t, "Salary", api.created[0].Name)
	assert.True(t, api.created[0].Price.Equal(decimal.NewFromInt(1000000)))
	assert.True(t, api.created[0].Datetime.Equal(app.Now()))
}

func TestAddServerFailure(t *testing.T) {
	api := &fakeAPI{createErr: &client.APIError{Status: 500, Title: "Failed to create transaction", Message: "store unavailable"}}
	app, _, stderr := newTestApp(api)
	code := app.Run(context.Background(), []string{"add", "Rp 500 Parking"})
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr.String(), "Failed to add transaction: Failed to create transaction: store unavailable (status 500)")
}

func TestExport(t *testing.T) {
	app, stdout, _ := newTestApp(&fakeAPI{items: sampleItems()})
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"export", "-o", path}))
	assert.Contains(t, stdout.String(), "exported 2 transactions")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Datetime", "Name", "Description", "Price"}, rows[0])
	assert.Equal(t, "Salary", rows[1][1])
	assert.Equal(t, "with team", rows[2][2])
	assert.Equal(t, "-30", rows[2][3])
	assert.Equal(t, "Balance", rows[3][0])
	assert.Equal(t, "70", rows[3][3])
}

func TestUsageErrors(t *testing.T) {
	app, _, stderr := newTestApp(&fakeAPI{})
	assert.Equal(t, ExitUsage, app.Run(context.Background(), nil))
	assert.Equal(t, ExitUsage, app.Run(context.Background(), []string{"frobnicate"}))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)
	assert.Equal(t, ExitUsage, app.Run(context.Background(), []string{"-tz", "Mars/Olympus", "list"}))
}
