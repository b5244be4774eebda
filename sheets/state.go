package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/hazyhaar/clearwatch/clears"
)

// StateSheet keeps the previous snapshot in a spreadsheet page. Page empty
// means the first page of the spreadsheet.
type StateSheet struct {
	client        *Client
	spreadsheetID string
	page          string

	mu       sync.Mutex
	resolved string
}

// NewStateSheet creates a StateSheet.
func NewStateSheet(c *Client, spreadsheetID, page string) *StateSheet {
	return &StateSheet{client: c, spreadsheetID: spreadsheetID, page: page}
}

// Load reads the previous snapshot. An empty page is an empty snapshot.
func (s *StateSheet) Load(ctx context.Context) (clears.Snapshot, error) {
	page, err := s.pageTitle(ctx)
	if err != nil {
		return nil, err
	}
	grid, err := s.client.Values(ctx, s.spreadsheetID, Quote(page))
	if err != nil {
		return nil, fmt.Errorf("sheets: load state: %w", err)
	}
	snap, err := clears.ParseStateGrid(grid)
	if err != nil {
		return nil, fmt.Errorf("sheets: load state: %w", err)
	}
	return snap, nil
}

// Save replaces the page content with the grid form of snap.
func (s *StateSheet) Save(ctx context.Context, snap clears.Snapshot) error {
	page, err := s.pageTitle(ctx)
	if err != nil {
		return err
	}
	if err := s.client.Clear(ctx, s.spreadsheetID, Quote(page)); err != nil {
		return fmt.Errorf("sheets: save state: %w", err)
	}
	if len(snap) == 0 {
		return nil
	}
	grid := clears.StateGrid(snap)
	rng := GridRange(page, len(grid), len(grid[0]))
	if err := s.client.Update(ctx, s.spreadsheetID, rng, grid); err != nil {
		return fmt.Errorf("sheets: save state: %w", err)
	}
	return nil
}

func (s *StateSheet) pageTitle(ctx context.Context) (string, error) {
	if s.page != "" {
		return s.page, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved != "" {
		return s.resolved, nil
	}
	titles, err := s.client.SheetTitles(ctx, s.spreadsheetID)
	if err != nil {
		return "", fmt.Errorf("sheets: resolve state page: %w", err)
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("sheets: spreadsheet %s has no pages", s.spreadsheetID)
	}
	s.resolved = titles[0]
	return s.resolved, nil
}

// PageSource reads one page of a spreadsheet.
type PageSource struct {
	client        *Client
	spreadsheetID string
	page          string
}

// NewPageSource creates a PageSource.
func NewPageSource(c *Client, spreadsheetID, page string) *PageSource {
	return &PageSource{client: c, spreadsheetID: spreadsheetID, page: page}
}

// Name returns the page title.
func (p *PageSource) Name() string { return p.page }

// Rows returns every value of the page. Its signature matches tiers.Loader.
func (p *PageSource) Rows(ctx context.Context) ([][]string, error) {
	rows, err := p.client.Values(ctx, p.spreadsheetID, Quote(p.page))
	if err != nil {
		return nil, fmt.Errorf("sheets: read page %q: %w", p.page, err)
	}
	return rows, nil
}
