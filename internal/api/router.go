package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

// Gallery is what the router needs from the gallery cache.
type Gallery interface {
	handler.GalleryRefresher
}

type Dependencies struct {
	Enrollment  handler.EnrollmentService
	Recognition handler.RecognitionService
	Attendance  interface {
		handler.AttendanceService
		handler.IdentityAttendance
	}
	Gallery Gallery
	Hub     *ws.Hub
	Decoder *imaging.Decoder
	Checks  []handler.Check
}

type Router struct {
	app       *fiber.App
	logger    *slog.Logger
	deps      *Dependencies
	cancelHub context.CancelFunc
}

// NewRouter builds the fiber app. The body limit follows the decoder's
// maximum image size, plus headroom for base64 and multipart framing.
func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	bodyLimit := imaging.DefaultMaxSize
	if deps != nil && deps.Decoder != nil {
		bodyLimit = deps.Decoder.MaxSize()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Chamada API",
		BodyLimit:    bodyLimit*4/3 + 64*1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var galleryStats handler.GalleryStats
	var checks []handler.Check
	if r.deps != nil {
		if r.deps.Gallery != nil {
			galleryStats = r.deps.Gallery
		}
		checks = r.deps.Checks
	}
	healthHandler := handler.NewHealthHandler(galleryStats, r.logger, checks...)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Without dependencies only the probes are served.
	if r.deps == nil {
		return
	}

	decoder := r.deps.Decoder
	if decoder == nil {
		decoder = imaging.NewDecoder(imaging.DefaultMaxSize)
	}

	v1 := r.app.Group("/v1")

	identityHandler := handler.NewIdentityHandler(r.deps.Enrollment, r.deps.Attendance, decoder, r.logger)
	v1.Post("/identities", identityHandler.Enroll)
	v1.Get("/identities", identityHandler.List)
	v1.Get("/identities/:id", identityHandler.Get)
	v1.Delete("/identities/:id", identityHandler.Delete)
	v1.Get("/identities/:id/attendance", identityHandler.Attendance)

	recognitionHandler := handler.NewRecognitionHandler(r.deps.Recognition, decoder, r.logger)
	v1.Post("/recognize", recognitionHandler.Recognize)

	attendanceHandler := handler.NewAttendanceHandler(r.deps.Attendance, decoder, r.logger)
	v1.Get("/sessions", attendanceHandler.ListSessions)
	v1.Get("/sessions/:id", attendanceHandler.Summary)
	v1.Post("/sessions/:id/attendance", attendanceHandler.Take)

	if r.deps.Gallery != nil {
		galleryHandler := handler.NewGalleryHandler(r.deps.Gallery, r.logger)
		v1.Get("/gallery", galleryHandler.Stats)
		v1.Post("/gallery/refresh", galleryHandler.Refresh)
	}

	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		v1.Get("/sessions/:id/live", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.cancelHub != nil {
		r.cancelHub()
	}
	return r.app.Shutdown()
}
