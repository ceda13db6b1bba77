package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Routes configures the HTTP server.
type Routes struct {
	WebsocketPath string
	MetricsPath   string
	Metrics       http.Handler
}

// NewServer builds the echo server for the frontend hub, the metrics
// endpoint and a health check.
func NewServer(ws *Websocket, routes Routes) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET(routes.WebsocketPath, ws.Handle)
	if routes.Metrics != nil {
		e.GET(routes.MetricsPath, echo.WrapHandler(routes.Metrics))
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"clients": ws.Clients(),
		})
	})
	return e
}
