package middleware

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/gofiber/fiber/v2"

	"sp-export/logger"
)

const SegmentName = "sp-export"

// XRayMiddleware wraps Fiber requests with AWS X-Ray tracing
func XRayMiddleware(log logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.Discard()
	}

	return func(c *fiber.Ctx) error {
		// Skip tracing for health checks to reduce noise
		if c.Path() == "/health" {
			return c.Next()
		}

		ctx, seg := xray.BeginSegment(c.UserContext(), SegmentName)
		defer func() {
			if seg != nil {
				seg.Close(nil)
			}
		}()

		// Add HTTP request metadata
		if seg.GetHTTP() != nil {
			seg.GetHTTP().GetRequest().Method = c.Method()
			seg.GetHTTP().GetRequest().URL = c.OriginalURL()
			seg.GetHTTP().GetRequest().ClientIP = c.IP()
			seg.GetHTTP().GetRequest().UserAgent = c.Get(fiber.HeaderUserAgent)
		}

		_ = seg.AddAnnotation("route", c.Path())
		_ = seg.AddAnnotation("method", c.Method())

		c.Locals("xray-ctx", ctx)

		err := c.Next()

		if seg.GetHTTP() != nil {
			seg.GetHTTP().GetResponse().Status = c.Response().StatusCode()
		}

		if err != nil {
			log.Error("request error", logger.Ctx{"path": c.Path(), "err": err.Error()})
			_ = seg.AddError(err)
			if seg.GetHTTP() != nil {
				seg.GetHTTP().GetResponse().Status = fiber.StatusInternalServerError
			}
		}

		return err
	}
}

// GetXRayContext returns the traced context stored by XRayMiddleware, or the
// request's user context when tracing is off.
func GetXRayContext(c *fiber.Ctx) context.Context {
	if ctx, ok := c.Locals("xray-ctx").(context.Context); ok && ctx != nil {
		return ctx
	}
	return c.UserContext()
}
