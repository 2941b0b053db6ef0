// Package server exposes the enrichment service over HTTP: upload a table,
// download the enriched copy.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyword-enricher/internal/config"
	"keyword-enricher/internal/service"
	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/logger"
	"keyword-enricher/pkg/table"
)

// Server is the fiber app in front of an EnrichmentService
type Server struct {
	app     *fiber.App
	cfg     config.ServerConfig
	svc     service.EnrichmentService
	monitor service.MonitorService
	baseCtx context.Context
	log     *logger.Logger
}

// New builds the app and its routes. Jobs run under baseCtx, so canceling it
// stops in-flight enrichment at the next batch boundary. fasthttp gives no
// signal when a client disconnects mid-request, so a job whose caller went
// away still runs to completion and its provider calls are still billed.
func New(baseCtx context.Context, cfg config.ServerConfig, svc service.EnrichmentService, monitor service.MonitorService, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		monitor: monitor,
		baseCtx: baseCtx,
		log:     log.WithField("component", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "kwenrich",
		BodyLimit:             cfg.MaxUploadSize,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	s.app.Post("/v1/enrich", s.handleEnrich)

	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured host and port until Shutdown
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.log.WithField("addr", addr).Info("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for open requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if err := s.monitor.HealthCheck(s.baseCtx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "busy": s.monitor.Busy()})
}

func (s *Server) handleEnrich(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, `multipart field "file" is required`)
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to open upload")
	}
	defer f.Close()

	in, err := table.Read(fh.Filename, f)
	if err != nil {
		if errors.Is(err, table.ErrUnsupportedFormat) {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	req, err := parseRequest(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req.Input = in

	// CSV has no room for the page summary; GSC jobs default to a workbook
	format := service.ParseFormat(c.FormValue("format"))
	if req.GSC {
		if strings.TrimSpace(c.FormValue("format")) != "" && format == service.FormatCSV {
			return fiber.NewError(fiber.StatusBadRequest, "gsc output needs format=xlsx to carry the page summary")
		}
		format = service.FormatXLSX
	}

	out, err := s.svc.Enrich(s.baseCtx, req)
	if out == nil {
		return jobError(err)
	}

	var buf bytes.Buffer
	if err := out.Write(&buf, format); err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}

	for k, v := range out.SummaryHeaders() {
		c.Set(k, v)
	}
	if out.Result.Canceled {
		c.Set("X-Run-Canceled", "true")
	}
	c.Attachment(service.FileName(format))
	c.Set(fiber.HeaderContentType, service.ContentType(format))

	return c.Send(buf.Bytes())
}

func parseRequest(c *fiber.Ctx) (service.Request, error) {
	req := service.Request{
		KeywordColumn: strings.TrimSpace(c.FormValue("keyword_column")),
		Mode:          strings.TrimSpace(c.FormValue("mode")),
		LanguageCode:  strings.TrimSpace(c.FormValue("language_code")),
	}

	if req.Mode != "" {
		if _, err := api.ParseMode(req.Mode); err != nil {
			return req, err
		}
	}

	if v := strings.TrimSpace(c.FormValue("location_code")); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil || code <= 0 {
			return req, fmt.Errorf("invalid location_code %q", v)
		}
		req.LocationCode = code
	}

	if v := strings.TrimSpace(c.FormValue("gsc")); v != "" {
		gsc, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("invalid gsc flag %q", v)
		}
		req.GSC = gsc
	}

	return req, nil
}

func jobError(err error) error {
	var fatal *api.FatalAPIError
	switch {
	case err == nil:
		return fiber.NewError(fiber.StatusInternalServerError, "enrichment produced no result")
	case errors.Is(err, service.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &fatal):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, "server is shutting down")
	default:
		return err
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	fields := map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
		"status": code,
	}
	if code >= fiber.StatusInternalServerError {
		s.log.WithFields(fields).WithError(err).Error("Request failed")
	} else {
		s.log.WithFields(fields).Warn(err.Error())
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
