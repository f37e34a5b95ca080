// Package google exports transactions to a Google Sheets spreadsheet. The
// worker keeps one row per transaction, keyed by the transaction ID in the
// first column, so repeated exports of the same record stay idempotent.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"planner/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// numeric sheet ID, resolved lazily; needed for row deletion
	sheetID      int64
	sheetIDKnown bool
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS; falls back to Application Default
// Credentials when none is set.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	scope := goption.WithScopes(gsheet.SpreadsheetsScope)
	switch {
	case serviceAccountJSON != "":
		return gsheet.NewService(ctx, scope, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		return gsheet.NewService(ctx, scope, goption.WithCredentialsFile(serviceAccountFile))
	default:
		// Application Default Credentials
		return gsheet.NewService(ctx, scope)
	}
}

// UpsertTransaction writes the transaction's current state to its row,
// appending a new row when the ID is not present yet.
func (c *Client) UpsertTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	row, err := c.findRow(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("find row for %s: %w", tx.ID, err)
	}

	values := &gsheet.ValueRange{Values: [][]interface{}{transactionRow(userID, tx)}}

	if row == 0 {
		_, err = c.svc.Spreadsheets.Values.
			Append(c.spreadsheetID, c.sheetName+"!A:F", values).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append row: %w", err)
		}
		slog.InfoContext(ctx, "Transaction appended to spreadsheet",
			"transaction_id", tx.ID, "sheet", c.sheetName)
		return nil
	}

	rangeRef := fmt.Sprintf("%s!A%d:F%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, rangeRef, values).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", row, err)
	}

	slog.InfoContext(ctx, "Transaction updated in spreadsheet",
		"transaction_id", tx.ID, "row", row, "sheet", c.sheetName)
	return nil
}

// DeleteTransaction removes the transaction's row. A missing row is fine:
// deletion after a never-exported create has nothing to do.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	row, err := c.findRow(ctx, id)
	if err != nil {
		return fmt.Errorf("find row for %s: %w", id, err)
	}
	if row == 0 {
		slog.InfoContext(ctx, "No spreadsheet row for deleted transaction", "transaction_id", id)
		return nil
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return fmt.Errorf("resolve sheet id: %w", err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1), // zero-based, end exclusive
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}

	slog.InfoContext(ctx, "Transaction row deleted from spreadsheet",
		"transaction_id", id, "row", row, "sheet", c.sheetName)
	return nil
}

// findRow returns the 1-based row holding the given ID, or 0 when absent.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, c.sheetName+"!A:A").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetIDKnown {
		return c.sheetID, nil
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			c.sheetID = sheet.Properties.SheetId
			c.sheetIDKnown = true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

// transactionRow renders one spreadsheet row:
// id, user, type, category, amount (decimal), date (RFC 3339).
func transactionRow(userID string, tx core.Transaction) []interface{} {
	return []interface{}{
		tx.ID,
		userID,
		string(tx.Type),
		tx.Category,
		formatAmount(tx.Amount),
		tx.Date.UTC().Format(time.RFC3339),
	}
}

func formatAmount(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}
