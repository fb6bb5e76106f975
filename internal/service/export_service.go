package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
	"github.com/noah-isme/sma-course-api/pkg/export"
)

// Report types served by ExportService.
const (
	ReportRoster = "roster"
	ReportAtRisk = "at-risk"
)

type rosterReader interface {
	Get(ctx context.Context, rawID string) (*models.Class, error)
	Roster(ctx context.Context, rawID string) ([]models.Student, error)
}

type atRiskReader interface {
	AtRisk(ctx context.Context, rawClassID string) ([]models.AtRiskStudent, error)
}

// ExportResult is a rendered report ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService builds class report datasets and renders them.
type ExportService struct {
	classes   rosterReader
	analytics atRiskReader
	renderers export.Registry
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. A nil registry uses the
// bundled renderers.
func NewExportService(classes rosterReader, analytics atRiskReader, renderers export.Registry, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderers == nil {
		renderers = export.DefaultRegistry()
	}
	return &ExportService{classes: classes, analytics: analytics, renderers: renderers, logger: logger, now: time.Now}
}

// ClassReport renders reportType for a class in the requested format.
func (s *ExportService) ClassReport(ctx context.Context, rawClassID, reportType, rawFormat string) (*ExportResult, error) {
	format, ok := export.ParseFormat(rawFormat)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	class, err := s.classes.Get(ctx, rawClassID)
	if err != nil {
		return nil, err
	}

	var dataset export.Dataset
	switch reportType {
	case ReportRoster, "":
		reportType = ReportRoster
		dataset, err = s.rosterDataset(ctx, rawClassID)
	case ReportAtRisk:
		dataset, err = s.atRiskDataset(ctx, rawClassID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be roster or at-risk")
	}
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s %s", class.Name, reportType)
	payload, err := s.renderers.Render(format, dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Info("class report rendered", zap.String("class_id", class.ID.String()),
		zap.String("type", reportType), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		Filename:    s.buildFilename(class.Name, reportType, format),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *ExportService) rosterDataset(ctx context.Context, rawClassID string) (export.Dataset, error) {
	students, err := s.classes.Roster(ctx, rawClassID)
	if err != nil {
		return export.Dataset{}, err
	}
	headers := []string{"Student ID", "Name", "Email", "Phone"}
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, map[string]string{
			"Student ID": st.ID.String(),
			"Name":       st.FullName(),
			"Email":      st.Email,
			"Phone":      st.PhoneNumber,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func (s *ExportService) atRiskDataset(ctx context.Context, rawClassID string) (export.Dataset, error) {
	students, err := s.analytics.AtRisk(ctx, rawClassID)
	if err != nil {
		return export.Dataset{}, err
	}
	headers := []string{"Student ID", "Name", "Average", "Probability"}
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, map[string]string{
			"Student ID":  st.StudentID.String(),
			"Name":        st.StudentName,
			"Average":     strconv.FormatFloat(st.Average, 'f', 2, 64),
			"Probability": strconv.FormatFloat(st.Probability, 'f', 2, 64),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func (s *ExportService) buildFilename(className, reportType string, format export.Format) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", sanitizeFilename(strings.ToLower(className)), reportType, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
