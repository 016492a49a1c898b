package middleware

import (
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appcontext "github.com/Ramsey-B/sage/pkg/context"
)

// Logger emits one structured line per request. Health probes are excluded:
// liveness and readiness fire every few seconds and would drown out real
// traffic.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()

			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			if strings.HasPrefix(req.URL.Path, "/api/v1/health") {
				return nil
			}

			ctx := req.Context()
			fields := map[string]any{
				"request_id":    appcontext.GetRequestID(ctx),
				"method":        req.Method,
				"route":         c.Path(),
				"uri":           req.RequestURI,
				"status":        res.Status,
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"user_agent":    req.UserAgent(),
				"response_time": elapsed,
				"response_size": res.Size,
			}
			if userID := appcontext.GetUserID(ctx); userID != "" {
				fields["user_id"] = userID
			}

			logger.WithContext(ctx).WithFields(fields).Info("Request")
			return nil
		}
	}
}
