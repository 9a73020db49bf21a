package dashboard

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/callqa/callqa/internal/pkg/aggregation"
	"github.com/callqa/callqa/internal/pkg/persistence"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB provides aggregation inputs and the agent roster
type DB interface {
	ListCompletedCalls(ctx context.Context, from, to *time.Time) ([]*persistence.CallRecord, error)
	ListAgents(ctx context.Context) ([]*persistence.Agent, error)
	InsertAgent(ctx context.Context, item *persistence.Agent) error
}

// Data keeps data required for service work
type Data struct {
	Port int
	DB   DB
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP CallQA dashboard service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("callqa_dashboard", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/summary", summary(data))
	e.GET("/trend", trend(data))
	e.GET("/leaderboard", leaderboard(data))
	e.GET("/agents", listAgents(data))
	e.POST("/agents", addAgent(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func summary(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("summary method")()
		calls, err := loadCalls(c, data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, aggregation.MakeSummary(calls))
	}
}

func trend(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("trend method")()
		g, err := aggregation.ParseGranularity(c.QueryParam("interval"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		calls, err := loadCalls(c, data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, aggregation.MakeTrend(calls, g))
	}
}

func leaderboard(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("leaderboard method")()
		calls, err := loadCalls(c, data)
		if err != nil {
			return err
		}
		agents, err := data.DB.ListAgents(c.Request().Context())
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, aggregation.MakeLeaderboard(calls, agents))
	}
}

type agentResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func listAgents(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("agents method")()
		agents, err := data.DB.ListAgents(c.Request().Context())
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]*agentResult, 0, len(agents))
		for _, a := range agents {
			res = append(res, &agentResult{ID: a.ID, Name: a.Name, Email: a.Email})
		}
		return c.JSON(http.StatusOK, res)
	}
}

type agentInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func addAgent(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("add agent method")()
		var inData agentInput
		if err := c.Bind(&inData); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if inData.Name == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no name")
		}
		a := &persistence.Agent{ID: uuid.New().String(), Name: inData.Name, Email: inData.Email}
		if err := data.DB.InsertAgent(c.Request().Context(), a); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, &agentResult{ID: a.ID, Name: a.Name, Email: a.Email})
	}
}

func loadCalls(c echo.Context, data *Data) ([]*persistence.CallRecord, error) {
	from, err := parseDate(c.QueryParam("from"), false)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, err := parseDate(c.QueryParam("to"), true)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	calls, err := data.DB.ListCompletedCalls(c.Request().Context(), from, to)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError)
	}
	return calls, nil
}

// parseDate reads a yyyy-mm-dd query value, endOfDay moves it to the day's last moment
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("wrong date '%s', expected yyyy-mm-dd", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
