package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/victornm/botm/internal/api"
	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/event"
	"github.com/victornm/botm/internal/leaderboard"
	"github.com/victornm/botm/internal/measurement"
	"github.com/victornm/botm/internal/member"
	"github.com/victornm/botm/internal/memstore"
	"github.com/victornm/botm/internal/session"
	"github.com/victornm/botm/internal/workout"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAPI_Auth(t *testing.T) {
	e := makeEnv(t)

	t.Run("register should start a session and land on the dashboard", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
			"name":           "Jane Doe",
			"email":          "jane@example.com",
			"password":       "secret1",
			"gender":         "FEMALE",
			"current_weight": 62.5,
			"waist":          70,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp api.SessionResponse
		decode(t, w, &resp)
		assert.Equal(t, "/dashboard", resp.Redirect)
		assert.Equal(t, "jane@example.com", resp.Member.Email)
		assert.NotEmpty(t, sessionCookie(t, w))
	})

	t.Run("invalid body should be a bad request", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
			"name":  "J",
			"email": "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong password should be unauthorized", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "jane@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("session should identify the member", func(t *testing.T) {
		token := e.login(t, "jane@example.com", "secret1")

		w := e.do(t, http.MethodGet, "/api/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var m api.Member
		decode(t, w, &m)
		assert.Equal(t, "Jane Doe", m.Name)
	})

	t.Run("anonymous request to a member route should be unauthorized", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("member request to an admin route should be forbidden", func(t *testing.T) {
		token := e.login(t, "jane@example.com", "secret1")
		w := e.do(t, http.MethodGet, "/api/admin/stats", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAPI_Measurements(t *testing.T) {
	e := makeEnv(t)
	token := e.signUp(t, "john@example.com", domain.GenderMale)

	w := e.do(t, http.MethodPost, "/api/me/measurements", token, map[string]any{"weight": 78, "arms": 38})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/me/measurements", token, map[string]any{"weight": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/me/measurements", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.MeasurementsResponse
	decode(t, w, &resp)
	assert.Len(t, resp.Measurements, 2, "registration measurement plus the new one")
	assert.Equal(t, 2, resp.Progress.Count)
}

func TestAPI_Competition(t *testing.T) {
	e := makeEnv(t)
	admin := e.admin(t)
	jane := e.signUp(t, "jane@example.com", domain.GenderFemale)
	john := e.signUp(t, "john@example.com", domain.GenderMale)

	var comp api.Competition
	{
		w := e.do(t, http.MethodPost, "/api/admin/competitions", admin, map[string]any{
			"name": "March Body of the Month",
			"date": "2026-03-07",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		decode(t, w, &comp)
		assert.Equal(t, domain.StatusUpcoming, comp.Status)
	}

	base := "/api/competitions/" + comp.ID

	// Both members register with the defaults of their gender.
	for _, token := range []string{jane, john} {
		w := e.do(t, http.MethodPost, base+"/register", token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var entries []api.Entry
		decode(t, w, &entries)
		assert.Len(t, entries, 4)
	}

	t.Run("registering twice should conflict", func(t *testing.T) {
		w := e.do(t, http.MethodPost, base+"/register", jane, map[string]any{"categories": []string{"Squats"}})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already registered for this competition")
	})

	janeID, johnID := e.memberID(t, jane), e.memberID(t, john)

	for _, s := range []struct {
		member string
		score  float64
	}{{janeID, 120}, {johnID, 140}} {
		w := e.do(t, http.MethodPost, "/api/admin/competitions/"+comp.ID+"/scores", admin, map[string]any{
			"member_id": s.member,
			"category":  "Squats",
			"score":     s.score,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	{
		w := e.do(t, http.MethodPost, "/api/admin/competitions/"+comp.ID+"/rankings", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var standings []api.Standing
		decode(t, w, &standings)
		require.Len(t, standings, 2)
		assert.Equal(t, 1, standings[0].Place)
	}

	t.Run("competition page should show ranks and registration", func(t *testing.T) {
		w := e.do(t, http.MethodGet, base, jane, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var l api.Leaderboard
		decode(t, w, &l)
		require.NotNil(t, l.Registered)
		assert.True(t, *l.Registered)

		var squats *api.CategoryLeaderboard
		for i := range l.Categories {
			if l.Categories[i].Category == "Squats" {
				squats = &l.Categories[i]
			}
		}
		require.NotNil(t, squats)
		require.Len(t, squats.Rows, 2)
		assert.Equal(t, johnID, squats.Rows[0].Entry.MemberID)
		require.NotNil(t, squats.Rows[0].Entry.Rank)
		assert.Equal(t, 1, *squats.Rows[0].Entry.Rank)
	})

	t.Run("anonymous visitor should not see a registration flag", func(t *testing.T) {
		w := e.do(t, http.MethodGet, base, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), `"registered"`)
	})

	t.Run("score should be required", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/admin/competitions/"+comp.ID+"/scores", admin, map[string]any{
			"member_id": janeID,
			"category":  "Squats",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("completed competition should enter the hall of fame", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/me/measurements", john, map[string]any{"weight": 85.5})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = e.do(t, http.MethodPut, "/api/admin/competitions/"+comp.ID+"/status", admin, map[string]any{"status": "COMPLETED"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = e.do(t, http.MethodGet, "/api/hall-of-fame", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var hof []api.HallOfFameEntry
		decode(t, w, &hof)
		require.Len(t, hof, 1)
		require.NotNil(t, hof[0].MaleWinner)
		require.NotNil(t, hof[0].FemaleWinner)
		assert.Equal(t, johnID, hof[0].MaleWinner.MemberID)
		assert.Equal(t, janeID, hof[0].FemaleWinner.MemberID)

		require.NotNil(t, hof[0].MaleWinner.Member)
		require.True(t, hof[0].MaleWinner.Member.LatestWeight.Valid)
		assert.Equal(t, "85.5", hof[0].MaleWinner.Member.LatestWeight.Decimal.String(), "winner should show the latest measurement")
		require.NotNil(t, hof[0].FemaleWinner.Member)
		assert.Equal(t, "80", hof[0].FemaleWinner.Member.LatestWeight.Decimal.String())
	})

	t.Run("completed competition should refuse registrations", func(t *testing.T) {
		late := e.signUp(t, "late@example.com", domain.GenderMale)
		w := e.do(t, http.MethodPost, base+"/register", late, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("admin stats should count everything", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats api.StatsResponse
		decode(t, w, &stats)
		assert.Equal(t, api.StatsResponse{Members: 3, Competitions: 1, UpcomingCompetitions: 0, Workouts: 0}, stats)
	})

	t.Run("unknown competition should be not found", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/competitions/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPI_Workouts(t *testing.T) {
	e := makeEnv(t)
	admin := e.admin(t)

	w := e.do(t, http.MethodPost, "/api/admin/workouts", admin, map[string]any{
		"title":       "Chest Day Destroyer",
		"description": "Intense chest workout to build mass and strength",
		"body_part":   "Chest",
		"difficulty":  "Intermediate",
		"content":     "1. Bench Press - 4 sets x 8-10 reps",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created api.Workout
	decode(t, w, &created)

	w = e.do(t, http.MethodGet, "/api/workouts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []api.Workout
	decode(t, w, &list)
	require.Len(t, list, 1)

	w = e.do(t, http.MethodDelete, "/api/admin/workouts/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodDelete, "/api/admin/workouts/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_LiveStandings(t *testing.T) {
	e := makeEnv(t)
	admin := e.admin(t)
	john := e.signUp(t, "john@example.com", domain.GenderMale)

	c, err := e.competitions.CreateCompetition(context.Background(), competition.CreateCompetitionRequest{
		Name: "Live Body of the Month",
		Date: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/api/competitions/"+c.CompetitionID+"/register", john, map[string]any{"categories": []string{"Squats"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	srv := httptest.NewServer(e.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/competitions/" + c.CompetitionID + "/live"
	dial := func(t *testing.T) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		return conn
	}

	conn := dial(t)
	johnID := e.memberID(t, john)

	snapshot := readStandings(t, conn)
	assert.Empty(t, snapshot.Standings, "nothing ranked yet")

	w = e.do(t, http.MethodPost, "/api/admin/competitions/"+c.CompetitionID+"/scores", admin, map[string]any{
		"member_id": johnID,
		"category":  "Squats",
		"score":     0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entry api.Entry
	readNotification(t, conn, domain.EventNameScoreEntered, &entry)
	assert.Equal(t, johnID, entry.MemberID)
	assert.True(t, entry.Scored, "zero is a valid score")

	w = e.do(t, http.MethodPost, "/api/admin/competitions/"+c.CompetitionID+"/rankings", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	update := readStandings(t, conn)
	require.Len(t, update.Standings, 1)
	assert.Equal(t, johnID, update.Standings[0].MemberID)

	w = e.do(t, http.MethodPut, "/api/admin/competitions/"+c.CompetitionID+"/status", admin, map[string]any{"status": "ACTIVE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var change api.StatusChange
	readNotification(t, conn, domain.EventNameCompetitionStatus, &change)
	assert.Equal(t, domain.StatusUpcoming, change.From)
	assert.Equal(t, domain.StatusActive, change.Competition.Status)

	t.Run("deleted member should leave the cached standings", func(t *testing.T) {
		w := e.do(t, http.MethodDelete, "/api/admin/members/"+johnID, admin, nil)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		require.Eventually(t, func() bool {
			_, err := e.leaderboard.GetStandings(context.Background(), leaderboard.GetStandingsRequest{CompetitionID: c.CompetitionID})
			return errors.Is(err, errors.CodeNotFound)
		}, time.Second, 10*time.Millisecond)

		snapshot := readStandings(t, dial(t))
		assert.Empty(t, snapshot.Standings)
	})
}

type env struct {
	engine       *gin.Engine
	members      *member.Service
	competitions *competition.Service
	leaderboard  *leaderboard.Service
}

func makeEnv(t *testing.T) *env {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	var (
		eb    = event.NewBus()
		store = memstore.New()
		e     = &env{engine: gin.New()}
	)
	t.Cleanup(eb.Stop)

	e.members = member.NewService(member.Config{Store: store, EventBus: eb, BcryptCost: bcrypt.MinCost})
	e.competitions = competition.NewService(competition.Config{Store: store, EventBus: eb})
	e.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus:        eb,
		Redis:           rc,
		Prefix:          "test:leaderboard",
		PublishInterval: time.Millisecond,
	})
	t.Cleanup(e.leaderboard.Stop)

	api.New(api.Config{
		Router:      e.engine,
		EventBus:    eb,
		Session:     session.NewService(session.Config{Secret: []byte("test")}),
		Member:      e.members,
		Measurement: measurement.NewService(measurement.Config{Store: store}),
		Competition: e.competitions,
		Workout:     workout.NewService(workout.Config{Store: store}),
		Leaderboard: e.leaderboard,
		Redis:        rc,
		PubsubPrefix: "test:pubsub",
	})

	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *env) signUp(t *testing.T, email string, g domain.Gender) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":           strings.Split(email, "@")[0],
		"email":          email,
		"password":       "secret1",
		"gender":         g,
		"current_weight": 80,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func (e *env) login(t *testing.T, email, password string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func (e *env) admin(t *testing.T) string {
	t.Helper()

	token := e.signUp(t, "admin@example.com", domain.GenderMale)
	require.NoError(t, e.members.UpdateRole(context.Background(), member.UpdateRoleRequest{
		MemberID: e.memberID(t, token),
		Role:     domain.RoleAdmin,
	}))
	return token
}

func (e *env) memberID(t *testing.T, token string) string {
	t.Helper()

	w := e.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var m api.Member
	decode(t, w, &m)
	return m.ID
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	t.Fatalf("no session cookie in response")
	return ""
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func readStandings(t *testing.T, conn *websocket.Conn) api.Standings {
	t.Helper()

	var out api.Standings
	readNotification(t, conn, domain.EventNameStandingsUpdated, &out)
	return out
}

// readNotification skips other events until the named one arrives.
func readNotification(t *testing.T, conn *websocket.Conn, event string, out any) {
	t.Helper()

	for {
		var n struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&n))
		if n.Event == event {
			require.NoError(t, json.Unmarshal(n.Data, out))
			return
		}
	}
}
