package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/event"
	"github.com/victornm/botm/internal/leaderboard"
	"github.com/victornm/botm/internal/measurement"
	"github.com/victornm/botm/internal/member"
	"github.com/victornm/botm/internal/session"
	"github.com/victornm/botm/internal/telemetry"
	"github.com/victornm/botm/internal/workout"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Session      *session.Service
	Member       *member.Service
	Measurement  *measurement.Service
	Competition  *competition.Service
	Workout      *workout.Service
	Leaderboard  *leaderboard.Service
	Redis        Redis
	PubsubPrefix string
	// SecureCookie marks the session cookie as HTTPS only.
	SecureCookie bool
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type API struct {
	ss  *session.Service
	ms  *member.Service
	mms *measurement.Service
	cs  *competition.Service
	ws  *workout.Service
	ls  *leaderboard.Service

	redis        Redis
	prefix       string
	secureCookie bool
}

func New(c Config) *API {
	a := &API{
		ss:           c.Session,
		ms:           c.Member,
		mms:          c.Measurement,
		cs:           c.Competition,
		ws:           c.Workout,
		ls:           c.Leaderboard,
		redis:        c.Redis,
		prefix:       c.PubsubPrefix,
		secureCookie: c.SecureCookie,
	}

	a.routes(c.Router)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameStandingsUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishStandingsUpdated(ctx, e.(domain.EventStandingsUpdated))
	})

	c.EventBus.Subscribe(domain.EventNameScoreEntered, func(ctx context.Context, e event.Event) error {
		return a.PublishScoreEntered(ctx, e.(domain.EventScoreEntered))
	})

	c.EventBus.Subscribe(domain.EventNameCompetitionStatus, func(ctx context.Context, e event.Event) error {
		return a.PublishCompetitionStatusChanged(ctx, e.(domain.EventCompetitionStatusChanged))
	})

	c.EventBus.Subscribe(domain.EventNameCompetitionRegistered, func(ctx context.Context, e event.Event) error {
		return a.PublishCompetitionRegistered(ctx, e.(domain.EventCompetitionRegistered))
	})

	return a
}

func (a *API) routes(r gin.IRouter) {
	api := r.Group("/api", telemetry.HTTPMetrics(), a.identify)

	auth := api.Group("/auth")
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/logout", a.Logout)

	api.GET("/competitions", a.ListCompetitions)
	api.GET("/competitions/:id", a.GetCompetition)
	api.GET("/competitions/:id/live", a.LiveStandings)
	api.GET("/hall-of-fame", a.HallOfFame)
	api.GET("/workouts", a.ListWorkouts)

	me := api.Group("", a.requireMember)
	me.GET("/me", a.GetMe)
	me.PUT("/me", a.UpdateMe)
	me.PUT("/me/password", a.UpdatePassword)
	me.GET("/me/measurements", a.ListMeasurements)
	me.POST("/me/measurements", a.AddMeasurement)
	me.POST("/competitions/:id/register", a.RegisterForCompetition)

	admin := api.Group("/admin", a.requireMember, a.requireAdmin)
	admin.GET("/stats", a.Stats)
	admin.GET("/members", a.ListMembers)
	admin.PUT("/members/:id/role", a.UpdateRole)
	admin.DELETE("/members/:id", a.DeleteMember)
	admin.POST("/competitions", a.CreateCompetition)
	admin.PUT("/competitions/:id/status", a.UpdateCompetitionStatus)
	admin.DELETE("/competitions/:id", a.DeleteCompetition)
	admin.POST("/competitions/:id/scores", a.EnterScore)
	admin.POST("/competitions/:id/rankings", a.CalculateRankings)
	admin.POST("/workouts", a.CreateWorkout)
	admin.DELETE("/workouts/:id", a.DeleteWorkout)
}

func (a *API) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, maxAge, "/", "", a.secureCookie, true)
}
