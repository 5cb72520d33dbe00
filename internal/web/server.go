package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/pkg/errors"

	"sendertally/internal/config"
	"sendertally/internal/gmail"
	"sendertally/internal/tally"
)

//go:embed views/*.html
var viewsFS embed.FS

// Options wires the server to the rest of the program.
type Options struct {
	Analyzer Analyzer
	// Trasher and Index enable POST /trash; either may be nil.
	Trasher     tally.Trasher
	Index       RecordIndex
	Location    *time.Location
	Top         int
	MaxMessages int
	Now         func() time.Time
	Logger      *slog.Logger
}

// Server is the browser front end for a single local user.
type Server struct {
	app    *fiber.App
	runner *Runner
	opts   Options
}

func New(opts Options) (*Server, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Top <= 0 {
		opts.Top = 20
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 2000
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, errors.Wrap(err, "load views")
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")

	app := fiber.New(fiber.Config{
		Views:                 engine,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(recover.New())
	app.Use(requestLogger(opts.Logger))

	s := &Server{
		app:    app,
		runner: NewRunner(opts.Analyzer, opts.Index, opts.Top, opts.Logger),
		opts:   opts,
	}
	app.Get("/", s.home)
	app.Post("/runs", s.startRun)
	app.Get("/runs/current", s.currentRun)
	app.Post("/runs/current/cancel", s.cancelRun)
	app.Post("/trash", s.trash)
	return s, nil
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Runner exposes the run holder.
func (s *Server) Runner() *Runner { return s.runner }

// Listen serves on addr until ctx ends, then cancels any active run.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()
	s.opts.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	_ = s.runner.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.runner.Wait(shutdownCtx)
	return s.app.ShutdownWithContext(shutdownCtx)
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"elapsed", time.Since(start))
		return err
	}
}

func (s *Server) home(c *fiber.Ctx) error {
	r := tally.DefaultRange(s.opts.Now().In(s.opts.Location))
	return c.Render("index", fiber.Map{
		"Title": "Top senders",
		"Start": r.Start.Format(time.DateOnly),
		"End":   r.End.Format(time.DateOnly),
		"Limit": s.opts.MaxMessages,
		"Min":   config.MinMessages,
		"Max":   config.MaxMessages,
		"Trash": s.opts.Trasher != nil && s.opts.Index != nil,
	})
}

type runRequest struct {
	Start string `json:"start" form:"start"`
	End   string `json:"end" form:"end"`
	Limit string `json:"limit" form:"limit"`
}

func (s *Server) startRun(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q, err := s.parseRun(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.runner.Start(q); err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	st, _ := s.runner.Status()
	return c.Status(fiber.StatusAccepted).JSON(st)
}

func (s *Server) parseRun(req runRequest) (tally.SearchQuery, error) {
	r, err := tally.ParseRange(strings.TrimSpace(req.Start), strings.TrimSpace(req.End), s.opts.Location)
	if err != nil {
		return tally.SearchQuery{}, err
	}
	limit := s.opts.MaxMessages
	if strings.TrimSpace(req.Limit) != "" {
		limit, err = strconv.Atoi(strings.TrimSpace(req.Limit))
		if err != nil {
			return tally.SearchQuery{}, errors.Errorf("limit must be a number, got %q", req.Limit)
		}
	}
	if limit < config.MinMessages || limit > config.MaxMessages {
		return tally.SearchQuery{}, errors.Errorf("limit must be between %d and %d", config.MinMessages, config.MaxMessages)
	}
	filter, err := tally.BuildQuery(r, s.opts.Location)
	if err != nil {
		return tally.SearchQuery{}, err
	}
	return tally.NewSearchQuery(filter, limit)
}

func (s *Server) currentRun(c *fiber.Ctx) error {
	st, err := s.runner.Status()
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(st)
}

func (s *Server) cancelRun(c *fiber.Ctx) error {
	if err := s.runner.Cancel(); err != nil {
		if errors.Is(err, ErrNoRun) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.SendStatus(fiber.StatusAccepted)
}

type trashRequest struct {
	Senders []string `json:"senders"`
	DryRun  bool     `json:"dry_run"`
}

type trashResponse struct {
	Requested int               `json:"requested"`
	Trashed   int               `json:"trashed"`
	Failed    map[string]string `json:"failed,omitempty"`
	DryRun    bool              `json:"dry_run"`
	Error     string            `json:"error,omitempty"`
}

func (s *Server) trash(c *fiber.Ctx) error {
	if s.opts.Trasher == nil || s.opts.Index == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "trash is not available")
	}
	if s.runner.Busy() {
		return fiber.NewError(fiber.StatusConflict, ErrRunInProgress.Error())
	}
	if s.runner.LastCancelled() {
		return fiber.NewError(fiber.StatusConflict, errPartialRun.Error())
	}
	var req trashRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(req.Senders) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no senders selected")
	}

	ctx := c.UserContext()
	ids, err := s.opts.Index.MessageIDsFrom(ctx, req.Senders)
	if err != nil {
		return err
	}
	if req.DryRun {
		return c.JSON(trashResponse{Requested: len(ids), DryRun: true})
	}

	report, err := gmail.TrashMessages(ctx, s.opts.Trasher, ids, nil)
	if len(report.Trashed) > 0 {
		if ferr := s.opts.Index.Forget(ctx, report.Trashed); ferr != nil {
			s.opts.Logger.Warn("forget trashed messages", "error", ferr)
		}
	}
	resp := trashResponse{
		Requested: report.Requested,
		Trashed:   len(report.Trashed),
	}
	if len(report.Failed) > 0 {
		resp.Failed = make(map[string]string, len(report.Failed))
		for ref, ferr := range report.Failed {
			resp.Failed[string(ref)] = ferr.Error()
		}
	}
	if err != nil {
		resp.Error = err.Error()
		return c.Status(statusFor(err)).JSON(resp)
	}
	return c.JSON(resp)
}

func statusFor(err error) int {
	if tally.IsAuth(err) {
		return fiber.StatusUnauthorized
	}
	return fiber.StatusBadGateway
}
