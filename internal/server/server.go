package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/doggopher/dogvault/internal/database"
	"github.com/doggopher/dogvault/internal/identity"
	"github.com/doggopher/dogvault/internal/server/middlewares"
	"github.com/doggopher/dogvault/pkg/dogapi"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultListLimit bounds list queries when the caller does not provide a limit.
const DefaultListLimit = 20

// A Controller is used to init the server package.
type Controller struct {
	Version  string
	Database database.Client
	Verifier identity.Verifier
	Fetcher  dogapi.Client
	// ListLimit bounds list responses. DefaultListLimit when zero.
	ListLimit int
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	// Responses must stay consumable from a separately hosted frontend.
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	////////////
	// Router //
	////////////

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.Bearer(ctrl.Verifier))

	//
	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// image handlers
	//
	limit := ctrl.ListLimit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	image := &image{
		db:      ctrl.Database,
		fetcher: ctrl.Fetcher,
		limit:   limit,
	}

	// Legacy gateway surface: one path, the action flag selects the operation.
	restricted.GET("/", image.Dispatch)
	restricted.POST("/", image.DispatchBody)
	restricted.DELETE("/", image.DispatchBody)

	// Preferred surface: one route per operation.
	restricted.GET("/images", image.List)
	restricted.POST("/images", image.Save)
	restricted.DELETE("/images", image.Delete)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentIdentity(c echo.Context) *identity.Identity {
	ident, ok := c.Get(middlewares.CurrentIdentityContextKey).(*identity.Identity)
	if ok {
		return ident
	}
	return nil
}
