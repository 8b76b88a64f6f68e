// Package sheets mirrors journaled transactions into a Google spreadsheet,
// one tab per calendar year.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financas/internal/core"
	"financas/internal/log"
)

const DefaultSheetName = "Transações"

var (
	ErrMissingSpreadsheet = errors.New("missing spreadsheet id")
	ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
)

// Header is the first row written to a freshly created year tab.
var Header = []any{"Data", "Descrição", "Categoria", "Tipo", "Valor", "Origem", "Pessoa", "Parcela", "ID"}

type Config struct {
	SpreadsheetID string
	// SheetName is the tab base name; the transaction year is prefixed.
	SheetName       string
	CredentialsJSON []byte

	// Extra client options, used by tests to point at a local server.
	Options []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	mu    sync.Mutex
	years map[int]bool // tabs known to exist
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, ErrMissingSpreadsheet
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = DefaultSheetName
	}

	opts := cfg.Options
	if len(cfg.CredentialsJSON) > 0 {
		opts = append([]goption.ClientOption{
			goption.WithCredentialsJSON(cfg.CredentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, opts...)
	} else if len(opts) == 0 {
		return nil, ErrMissingCredentials
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: id,
		sheetBase:     base,
		logger:        log.OrNop(logger).WithComponent(log.ComponentSheets),
		years:         make(map[int]bool),
	}, nil
}

// CredentialsFromEnv reads service account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func CredentialsFromEnv() ([]byte, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		return []byte(raw), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, ErrMissingCredentials
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// AppendTransaction writes tx as a new row of its year tab and returns the
// updated range.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	year, err := yearOf(tx.Date)
	if err != nil {
		return "", err
	}

	if err := c.ensureYear(ctx, year); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("'%s'!A:I", yearPrefixedName(c.sheetBase, year))
	vr := &gsheet.ValueRange{Values: [][]any{Row(tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Transaction mirrored",
		log.FieldTransactionID, tx.ID,
		"range", ref)
	return ref, nil
}

func (c *Client) ensureYear(ctx context.Context, year int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.years[year] {
		return nil
	}
	if err := c.EnsureYearSheet(ctx, year); err != nil {
		return err
	}
	c.years[year] = true
	return nil
}

// EnsureYearSheet creates the tab for year with the header row unless it exists.
func (c *Client) EnsureYearSheet(ctx context.Context, year int) error {
	name := yearPrefixedName(c.sheetBase, year)
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return nil
		}
	}

	add := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, add).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	header := &gsheet.ValueRange{Values: [][]any{Header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1:I1", name), header).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}
	c.logger.InfoContext(ctx, "Year sheet created", "sheet", name)
	return nil
}

// Row renders tx in the column order of Header.
func Row(tx core.Transaction) []any {
	kind := "Despesa"
	if tx.Type == core.Income {
		kind = "Receita"
	}
	parcel := ""
	if tx.Installments != nil {
		parcel = fmt.Sprintf("%d/%d", tx.Installments.Current, tx.Installments.Total)
	}
	return []any{
		tx.Date,
		tx.Description,
		tx.Category,
		kind,
		tx.Amount.InexactFloat64(),
		tx.Source,
		tx.PeerID,
		parcel,
		strconv.FormatInt(tx.ID, 10),
	}
}

func yearOf(iso string) (int, error) {
	t, err := core.ParseISODate(iso)
	if err != nil {
		return 0, err
	}
	return t.Year(), nil
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
