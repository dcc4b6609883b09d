// Package sheets appends extraction reports to a Google Sheets worksheet so
// operators can review batch runs and spot documents needing manual review.
package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"docextract/internal/extraction"
	"docextract/internal/logger"
)

// Row statuses.
const (
	StatusOK        = "ok"
	StatusEmergency = "revisión manual"
)

const lastColumn = "M"

var columnHeaders = []interface{}{
	"Archivo", "Run ID", "Estado", "Método", "Confianza",
	"Salud", "Páginas", "Caracteres", "Folios eliminados", "Correcciones",
	"Motivos de fallo", "Tiempo (ms)", "Procesado",
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// ReportRow is one extraction result flattened for the sheet.
type ReportRow struct {
	FileName         string
	RunID            string
	Status           string
	Method           string
	Confidence       float64
	HealthScore      float64
	Pages            int
	Characters       int
	FoliosRemoved    int
	Corrections      int
	FailureReasons   string
	ProcessingTimeMs int64
	ProcessedAt      string
}

// NewSheetsService creates a new Google Sheets service
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return NewServiceWithClient(sheetsService, spreadsheetID), nil
}

// NewServiceWithClient wraps an existing Sheets client.
func NewServiceWithClient(sheetsService *sheets.Service, spreadsheetID string) *Service {
	log := logger.WithComponent("sheets")
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Using spreadsheet")

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// WriteResults appends one row per extraction result to the named worksheet,
// creating the worksheet and its header row when missing.
func (s *Service) WriteResults(ctx context.Context, results []*extraction.Result, sheetName string) error {
	const op = "WriteResults"

	if len(results) == 0 {
		return nil
	}

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(results)).
		Msg("Writing extraction results to Google Sheet")

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	processedAt := time.Now().Format("02-01-2006 15:04:05")
	values := make([][]interface{}, 0, len(results))
	for _, result := range results {
		values = append(values, NewReportRow(result, processedAt).Values())
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", sheetName, lastColumn),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote extraction results to Google Sheet")

	return nil
}

// NewReportRow flattens a result into a sheet row.
func NewReportRow(result *extraction.Result, processedAt string) ReportRow {
	meta := result.Metadata
	row := ReportRow{
		FileName:         meta.FileName,
		RunID:            meta.RunID,
		Status:           StatusOK,
		Method:           meta.ProcessingMetrics.SuccessfulMethod,
		Confidence:       result.Confidence,
		HealthScore:      meta.HealthScore,
		Pages:            meta.PageCount,
		Characters:       result.CleaningStats.CleanedLength,
		FoliosRemoved:    result.CleaningStats.RemovedItems.FolioReferences,
		Corrections:      result.CleaningStats.Corrections,
		FailureReasons:   strings.Join(meta.FailureReasons, "; "),
		ProcessingTimeMs: meta.ProcessingTimeMs,
		ProcessedAt:      processedAt,
	}
	if meta.Emergency {
		row.Status = StatusEmergency
	}
	return row
}

// Values returns the row in column order A..M.
func (r ReportRow) Values() []interface{} {
	return []interface{}{
		r.FileName,         // A: Archivo
		r.RunID,            // B: Run ID
		r.Status,           // C: Estado
		r.Method,           // D: Método
		r.Confidence,       // E: Confianza
		r.HealthScore,      // F: Salud
		r.Pages,            // G: Páginas
		r.Characters,       // H: Caracteres
		r.FoliosRemoved,    // I: Folios eliminados
		r.Corrections,      // J: Correcciones
		r.FailureReasons,   // K: Motivos de fallo
		r.ProcessingTimeMs, // L: Tiempo (ms)
		r.ProcessedAt,      // M: Procesado
	}
}

// ensureSheetWithHeaders creates the worksheet when missing and writes the
// header row when the first row is empty.
func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	sheetID, err := s.sheetID(ctx, sheetName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, lastColumn)
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{columnHeaders}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// sheetID returns the ID of the named worksheet, adding it if needed.
func (s *Service) sheetID(ctx context.Context, sheetName string) (int64, error) {
	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			return sheet.Properties.SheetId, nil
		}
	}

	s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
		},
	}
	resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("failed to create sheet: empty reply")
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// formatHeaders bolds and shades the header row and fits column widths.
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	columns := int64(len(columnHeaders))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("formatHeaders: %w", err)
	}
	return nil
}
