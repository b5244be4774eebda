// Package sheets reads and writes Google Sheets through the v4 API,
// authenticated with a service account.
//
//	c, err := sheets.NewClient(ctx, []byte(os.Getenv("GOOGLE_CREDS_JSON")))
//	rows, err := c.Values(ctx, spreadsheetID, sheets.Quote("Clears"))
package sheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Scopes requested for the service account.
var Scopes = []string{
	sheetsapi.SpreadsheetsScope,
	sheetsapi.DriveScope,
}

// ErrNoCredentials is returned by NewClient when no credentials JSON is given.
var ErrNoCredentials = errors.New("sheets: no service account credentials")

// IsNotFound reports whether err is a 404 from the API, which is what a
// wrong spreadsheet ID produces.
func IsNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// Client talks to the Sheets API.
type Client struct {
	svc *sheetsapi.Service
}

// NewClient builds a Client from service account JSON.
func NewClient(ctx context.Context, credsJSON []byte, opts ...option.ClientOption) (*Client, error) {
	if len(bytes.TrimSpace(credsJSON)) == 0 {
		return nil, ErrNoCredentials
	}
	creds, err := google.CredentialsFromJSON(ctx, credsJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse credentials: %w", err)
	}
	hc := oauth2.NewClient(ctx, creds.TokenSource)
	hc.Timeout = 60 * time.Second
	return NewClientWithHTTP(ctx, hc, opts...)
}

// NewClientWithHTTP wraps an already authenticated HTTP client. Tests point
// it at a fake with option.WithEndpoint.
func NewClientWithHTTP(ctx context.Context, hc *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Values returns the formatted values of a range. The API leaves out
// trailing empty cells, and a blank row comes back with no cells at all;
// rows are padded to the widest row so blank separator rows keep their
// place in the grid.
func (c *Client) Values(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	vr, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, a1Range).
		MajorDimension("ROWS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: values.get %s: %w", a1Range, err)
	}
	rows := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellText(cell)
		}
	}
	return padRows(rows), nil
}

// Clear empties a range, keeping formatting.
func (c *Client) Clear(ctx context.Context, spreadsheetID, a1Range string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, a1Range, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: values.clear %s: %w", a1Range, err)
	}
	return nil
}

// Update writes values at a range. Values are parsed as if typed by a user.
func (c *Client) Update(ctx context.Context, spreadsheetID, a1Range string, values [][]string) error {
	vr := &sheetsapi.ValueRange{
		Range:          a1Range,
		MajorDimension: "ROWS",
		Values:         make([][]interface{}, len(values)),
	}
	for i, row := range values {
		vr.Values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			vr.Values[i][j] = cell
		}
	}
	_, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, a1Range, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: values.update %s: %w", a1Range, err)
	}
	return nil
}

// SheetTitles lists the page titles of a spreadsheet in tab order.
func (c *Client) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: spreadsheets.get: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func cellText(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// padRows extends every row with empty cells to the width of the widest
// row, and never below one cell.
func padRows(rows [][]string) [][]string {
	width := 1
	for _, r := range rows {
		width = max(width, len(r))
	}
	for i, r := range rows {
		if len(r) < width {
			rows[i] = append(r, make([]string, width-len(r))...)
		}
	}
	return rows
}
