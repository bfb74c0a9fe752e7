package api

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
)

// ListCompetitions filters by ?status=UPCOMING,ACTIVE, all competitions otherwise.
func (a *API) ListCompetitions(c *gin.Context) {
	var statuses []domain.CompetitionStatus
	for _, v := range c.QueryArray("status") {
		for _, s := range strings.Split(v, ",") {
			st := domain.CompetitionStatus(strings.ToUpper(strings.TrimSpace(s)))
			if !st.Valid() {
				a.fail(c, errors.InvalidArgument("unknown competition status: %q", s))
				return
			}
			statuses = append(statuses, st)
		}
	}

	cs, err := a.cs.ListCompetitions(c.Request.Context(), competition.ListCompetitionsRequest{Statuses: statuses})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, mapSlice(cs, toCompetition))
}

func (a *API) GetCompetition(c *gin.Context) {
	ctx := c.Request.Context()

	l, err := a.cs.Leaderboard(ctx, c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}

	resp := toLeaderboard(l)

	if m := currentMember(c); m != nil {
		registered, err := a.cs.IsRegistered(ctx, l.Competition.CompetitionID, m.MemberID)
		if err != nil {
			a.fail(c, err)
			return
		}
		resp.Registered = &registered
	}

	c.JSON(http.StatusOK, resp)
}

type RegisterForCompetitionRequest struct {
	// Categories defaults to the categories of the member's gender when empty.
	Categories []string `json:"categories"`
}

func (a *API) RegisterForCompetition(c *gin.Context) {
	var req RegisterForCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		a.fail(c, errors.InvalidArgument("invalid request: %v", err))
		return
	}

	entries, err := a.cs.Register(c.Request.Context(), competition.RegisterRequest{
		CompetitionID: c.Param("id"),
		Member:        *currentMember(c),
		Categories:    req.Categories,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, mapSlice(entries, toEntry))
}

func (a *API) HallOfFame(c *gin.Context) {
	hof, err := a.cs.HallOfFame(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, mapSlice(hof, toHallOfFameEntry))
}

func (a *API) ListWorkouts(c *gin.Context) {
	ws, err := a.ws.ListWorkouts(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, mapSlice(ws, toWorkout))
}
