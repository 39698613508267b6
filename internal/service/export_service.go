package service

import (
	"context"
	"io"

	"datalink/internal/domain"
	"datalink/internal/export"
	"datalink/internal/logger"
)

// ExportInput selects what to export. An empty Format uses the
// results.exportFormat setting.
type ExportInput struct {
	QueryID string
	Format  string
	Columns []string
}

// ExportService writes stored result sets using the results settings.
type ExportService struct {
	queries  domain.QueryLogStore
	settings *SettingsService
	log      *logger.Logger
}

// NewExportService creates an ExportService.
func NewExportService(queries domain.QueryLogStore, settings *SettingsService, log *logger.Logger) *ExportService {
	return &ExportService{queries: queries, settings: settings, log: log.With().Str("component", "export").Logger()}
}

// Export writes the rows of one history entry to w, capped at
// results.maxRows.
func (s *ExportService) Export(ctx context.Context, in ExportInput, w io.Writer) (*export.Result, error) {
	q, err := s.queries.GetQuery(ctx, in.QueryID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	format := in.Format
	if format == "" {
		format = prefs.Results.ExportFormat
	}

	res, err := export.Run(ctx, q, export.Job{
		Format:  export.Format(format),
		MaxRows: prefs.Results.MaxRows,
		Columns: in.Columns,
	}, w)
	if err != nil {
		return nil, err
	}
	s.log.With().
		Str("query_id", q.ID).
		Str("format", format).
		Int("rows", res.RowsWritten).
		Logger().Debug("query result exported")
	return res, nil
}
