package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dompet/internal/core"
	"dompet/internal/log"
	ports "dompet/internal/sheets"
)

// rowDatetimeLayout is understood by Sheets as a date-time under USER_ENTERED.
const rowDatetimeLayout = "2006-01-02 15:04:05"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.EntryAppender = (*Client)(nil)

// Options selects the target sheet and the credentials. Service account
// credentials win over OAuth when both are set.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthTokenJSON     string
	// Location is the zone the datetime column is written in. nil means UTC.
	Location *time.Location
}

// New creates a Sheets client for the mirror spreadsheet.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, opts Options) *Client {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetName:     sheet,
		loc:           loc,
		logger:        log.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service from service account or OAuth credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	saJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	saFile := strings.TrimSpace(opts.ServiceAccountFile)

	switch {
	case saJSON != "" || saFile != "":
		credentialsJSON := []byte(saJSON)
		if saJSON == "" {
			var err error
			credentialsJSON, err = os.ReadFile(saFile)
			if err != nil {
				return nil, fmt.Errorf("read service account file: %w", err)
			}
		}
		jwt, err := goauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("service account config: %w", err)
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
		return gsheet.NewService(ctx, goption.WithHTTPClient(jwt.Client(ctx)))

	case opts.OAuthClientJSON != "" && opts.OAuthTokenJSON != "":
		cfg, err := goauth.ConfigFromJSON([]byte(opts.OAuthClientJSON), gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("oauth config: %w", err)
		}
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(opts.OAuthTokenJSON), &tok); err != nil {
			return nil, fmt.Errorf("oauth token: %w", err)
		}
		// The token source refreshes through the pooled client.
		ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
		return gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &tok)))
	}

	return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_OAUTH_CLIENT_JSON with GOOGLE_OAUTH_TOKEN_JSON)")
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API
// with connection pooling and timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// EntryRow is the mirrored row: datetime, name, description, price, id.
func EntryRow(e core.Entry, loc *time.Location) []interface{} {
	if loc == nil {
		loc = time.UTC
	}
	return []interface{}{
		e.Datetime.In(loc).Format(rowDatetimeLayout),
		e.Name,
		e.Description,
		e.Price.String(),
		e.ID.String(),
	}
}

// AppendEntry appends the entry below the last row of the mirror sheet.
func (c *Client) AppendEntry(ctx context.Context, e core.Entry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:E", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]interface{}{EntryRow(e, c.loc)}}

	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Entry mirrored to sheet",
		log.FieldEntryID, e.ID.String(),
		log.FieldSheetsRange, ref,
		log.FieldDuration, time.Since(start).Milliseconds())
	return ref, nil
}
