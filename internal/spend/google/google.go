// Package google reads per-category spend from a yearly Google Sheets
// dashboard ("<year> Dashboard") laid out as Primary, Secondary, Jan..Dec.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finhealth/internal/spend"
)

// dashboardRange covers the header row and every category row.
const dashboardRange = "A1:Q80"

// valuesReader is the slice of the Sheets API the client needs.
type valuesReader interface {
	Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type sheetsValues struct {
	svc *gsheet.Service
}

func (s sheetsValues) Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Config carries the spreadsheet location and OAuth material. Inline JSON
// wins over the file variants.
type Config struct {
	SpreadsheetID   string
	DashboardBase   string
	OAuthClientFile string
	OAuthClientJSON string
	OAuthTokenFile  string
	OAuthTokenJSON  string
}

type Client struct {
	values        valuesReader
	spreadsheetID string
	dashboardBase string
}

var _ spend.Source = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(sheetsValues{svc: svc}, cfg.SpreadsheetID, cfg.DashboardBase), nil
}

func newClient(values valuesReader, spreadsheetID, dashboardBase string) *Client {
	if strings.TrimSpace(dashboardBase) == "" {
		dashboardBase = "Dashboard"
	}
	return &Client{
		values:        values,
		spreadsheetID: spreadsheetID,
		dashboardBase: dashboardBase,
	}
}

// newSheetsService builds a read-only Sheets service from the OAuth client
// and the token saved by oauth-init.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	clientJSON, err := jsonOrFile(cfg.OAuthClientJSON, cfg.OAuthClientFile, "OAuth client")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := jsonOrFile(cfg.OAuthTokenJSON, cfg.OAuthTokenFile, "OAuth token")
	if err != nil {
		return nil, err
	}

	oauthCfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauthCfg.Client(base, &tok)

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets spend source ready", "component", "spend")
	return svc, nil
}

func jsonOrFile(inline, path, what string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("missing %s credentials", what)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", what, err)
	}
	return b, nil
}

// newHTTPClientWithPooling is the transport under the OAuth client.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// monthTotals reads the dashboard of period's year and returns its
// primary-category totals for period's month.
func (c *Client) monthTotals(ctx context.Context, period spend.Period) ([]categoryAmount, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("invalid period %v", period)
	}
	sheet := yearPrefixedName(c.dashboardBase, period.Year)
	rng := fmt.Sprintf("'%s'!%s", sheet, dashboardRange)
	values, err := c.values.Values(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseDashboard(values, int(period.Month))
}

func (c *Client) SpentForCategory(ctx context.Context, category string, period spend.Period) (float64, error) {
	totals, err := c.monthTotals(ctx, period)
	if err != nil {
		return 0, err
	}
	i := matchCategory(names(totals), category)
	if i < 0 {
		slog.DebugContext(ctx, "Category not on dashboard", "component", "spend", "category", category, "period", period.String())
		return 0, nil
	}
	return totals[i].Amount, nil
}

func (c *Client) SpentLastPeriod(ctx context.Context, category string, period spend.Period) (float64, error) {
	return c.SpentForCategory(ctx, category, period.Previous())
}

func (c *Client) Categories(ctx context.Context, period spend.Period) ([]string, error) {
	totals, err := c.monthTotals(ctx, period)
	if err != nil {
		return nil, err
	}
	return names(totals), nil
}

func names(totals []categoryAmount) []string {
	out := make([]string, len(totals))
	for i, t := range totals {
		out[i] = t.Name
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
