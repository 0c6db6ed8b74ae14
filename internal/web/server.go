package web

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

//go:embed index.html
var indexHTML string

// Server hosts the browser shell and the agent websocket.
type Server struct {
	Echo *echo.Echo
}

// New builds the routes. onText receives typed submissions, onPCM receives raw
// microphone chunks; either may be nil.
func New(hub *Hub, onText func(string), onPCM func([]byte)) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/", func(c echo.Context) error {
		return c.HTML(http.StatusOK, indexHTML)
	})
	e.GET("/ws", func(c echo.Context) error {
		hub.ServeWS(c.Response(), c.Request(), onText, onPCM)
		return nil
	})

	return &Server{Echo: e}
}
