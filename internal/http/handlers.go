package http

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/assessd/internal/export"
	"github.com/fyrsmithlabs/assessd/internal/importer"
	"github.com/fyrsmithlabs/assessd/internal/logging"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

// handleHealth returns a simple health check response. A configured
// database that fails to ping turns the response into a 503.
func (s *Server) handleHealth(c echo.Context) error {
	if s.services.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.services.Database.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "database ping failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: "degraded"})
		}
	}
	return c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleAPIHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, api.OKResponse{OK: true})
}

// handleImport loads an uploaded CSV question bank.
func (s *Server) handleImport(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return api.NewValidationError("file", "no file uploaded")
	}
	if !strings.EqualFold(path.Ext(fh.Filename), ".csv") {
		return api.NewValidationError("file", "only CSV files are allowed")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := s.services.Importer.Import(c.Request().Context(), f)
	if err != nil {
		var logs []string
		if report != nil {
			logs = report.Logs
		}
		if errors.Is(err, importer.ErrMalformedCSV) {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error:   "Import failed",
				Message: err.Error(),
				Logs:    logs,
			})
		}
		s.logger.Error(c.Request().Context(), "question import failed",
			zap.String("file", fh.Filename), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:   "Import failed",
			Message: "questions could not be saved",
			Logs:    logs,
		})
	}

	resp := api.ImportResponse{
		Success: true,
		Message: "Questions imported successfully",
		Logs:    report.Logs,
		Report: &api.ImportSummary{
			Delimiter:     report.Delimiter,
			Imported:      report.Imported,
			Skipped:       report.Skipped,
			Duplicates:    report.Duplicates,
			TotalDataRows: report.TotalDataRows,
		},
	}
	if report.Coverage != nil {
		resp.Cover = coverageResponse(report.Coverage)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCoverage(c echo.Context) error {
	cov, err := s.services.Importer.Coverage(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, coverageResponse(cov))
}

func coverageResponse(cov *importer.CoverageReport) *api.CoverageResponse {
	return &api.CoverageResponse{Coverage: cov.Coverage, Other: cov.Other, Total: cov.Total}
}

func (s *Server) handleCreateAssessment(c echo.Context) error {
	var req api.CreateAssessmentRequest
	if err := c.Bind(&req); err != nil {
		return api.NewValidationError("body", "invalid request body")
	}

	resp, err := s.services.Assessments.Create(c.Request().Context(), req.StdCode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleQuestions(c echo.Context) error {
	id := c.Param("id")
	ctx := logging.WithAssessmentID(c.Request().Context(), id)

	resp, err := s.services.Assessments.Questions(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleBatch(c echo.Context) error {
	id := c.Param("assessmentId")
	ctx := logging.WithAssessmentID(c.Request().Context(), id)

	var req api.BatchRequest
	if err := c.Bind(&req); err != nil {
		return api.NewValidationError("body", "invalid request body")
	}

	n, err := s.services.Answers.UpsertBatch(ctx, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.BatchResponse{Upserted: n})
}

// handleExport streams a PDF or workbook; the format is the last path
// segment of the route.
func (s *Server) handleExport(c echo.Context) error {
	id := c.Param("assessmentId")
	ctx := logging.WithAssessmentID(c.Request().Context(), id)

	format, err := export.ParseFormat(path.Base(c.Path()))
	if err != nil {
		return api.NewValidationError("format", "%v", err)
	}

	report, err := s.services.Exports.Load(ctx, id)
	if err != nil {
		return err
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, format.ContentType())
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+format.Filename(id)+`"`)
	res.WriteHeader(http.StatusOK)

	if err := s.services.Exports.Render(ctx, report, format, res); err != nil {
		// Headers are already sent; the client sees a truncated body.
		s.logger.Error(ctx, "export stream failed", zap.Error(err))
	}
	return nil
}
