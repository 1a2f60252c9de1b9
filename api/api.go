package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, log *logger.Logger) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "learnhub-api",
			BodyLimit:    20 * 1024 * 1024, // handout uploads
			ErrorHandler: errorHandler(log),
		}),
		listenAddress: listenAddress,
		log:           log,
	}
}

// errorHandler renders errors that escape the handlers (unknown routes,
// body limit, panics turned into errors) in the standard envelope
func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fiber.StatusNotFound:
				return response.NotFound(c, fe.Message)
			case fiber.StatusMethodNotAllowed:
				return response.Error(c, fe.Code, fe.Message, "METHOD_NOT_ALLOWED")
			case fiber.StatusRequestEntityTooLarge:
				return response.Error(c, fe.Code, fe.Message, "PAYLOAD_TOO_LARGE")
			}
			if fe.Code < fiber.StatusInternalServerError {
				return response.BadRequest(c, fe.Message)
			}
		}
		log.Error("unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
		return response.FromError(c, err)
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API server")
	return s.app.ShutdownWithContext(ctx)
}
