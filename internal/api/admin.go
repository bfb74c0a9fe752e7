package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/member"
	"github.com/victornm/botm/internal/workout"
)

type StatsResponse struct {
	Members              int `json:"members"`
	Competitions         int `json:"competitions"`
	UpcomingCompetitions int `json:"upcoming_competitions"`
	Workouts             int `json:"workouts"`
}

func (a *API) Stats(c *gin.Context) {
	var resp StatsResponse
	eg, ctx := errgroup.WithContext(c.Request.Context())

	eg.Go(func() (err error) {
		resp.Members, err = a.ms.CountMembers(ctx)
		return err
	})
	eg.Go(func() error {
		counts, err := a.cs.Counts(ctx)
		if err != nil {
			return err
		}
		resp.Competitions, resp.UpcomingCompetitions = counts.Total, counts.Upcoming
		return nil
	})
	eg.Go(func() (err error) {
		resp.Workouts, err = a.ws.CountWorkouts(ctx)
		return err
	})

	if err := eg.Wait(); err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) ListMembers(c *gin.Context) {
	ms, err := a.ms.ListMembers(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, mapSlice(ms, func(m domain.Member) Member { return toMember(&m) }))
}

type UpdateRoleRequest struct {
	Role domain.Role `json:"role" binding:"required"`
}

func (a *API) UpdateRole(c *gin.Context) {
	var req UpdateRoleRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	err := a.ms.UpdateRole(c.Request.Context(), member.UpdateRoleRequest{
		MemberID: c.Param("id"),
		Role:     req.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) DeleteMember(c *gin.Context) {
	if err := a.ms.DeleteMember(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type CreateCompetitionRequest struct {
	Name string `json:"name" binding:"required"`
	// Date is either YYYY-MM-DD or RFC 3339.
	Date             string `json:"date" binding:"required"`
	MaleCategories   string `json:"male_categories"`
	FemaleCategories string `json:"female_categories"`
}

func (a *API) CreateCompetition(c *gin.Context) {
	var req CreateCompetitionRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		a.fail(c, err)
		return
	}

	comp, err := a.cs.CreateCompetition(c.Request.Context(), competition.CreateCompetitionRequest{
		Name:             req.Name,
		Date:             date,
		MaleCategories:   req.MaleCategories,
		FemaleCategories: req.FemaleCategories,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCompetition(*comp))
}

type UpdateCompetitionStatusRequest struct {
	Status domain.CompetitionStatus `json:"status" binding:"required"`
}

func (a *API) UpdateCompetitionStatus(c *gin.Context) {
	var req UpdateCompetitionStatusRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	comp, err := a.cs.UpdateStatus(c.Request.Context(), competition.UpdateStatusRequest{
		CompetitionID: c.Param("id"),
		Status:        req.Status,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toCompetition(*comp))
}

func (a *API) DeleteCompetition(c *gin.Context) {
	if err := a.cs.DeleteCompetition(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type EnterScoreRequest struct {
	MemberID string           `json:"member_id" binding:"required"`
	Category string           `json:"category" binding:"required"`
	// Zero is a valid score, a missing one is not.
	Score    *decimal.Decimal `json:"score" binding:"required"`
}

func (a *API) EnterScore(c *gin.Context) {
	var req EnterScoreRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	e, err := a.cs.EnterScore(c.Request.Context(), competition.EnterScoreRequest{
		CompetitionID: c.Param("id"),
		MemberID:      req.MemberID,
		Category:      req.Category,
		Score:         *req.Score,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toEntry(*e))
}

func (a *API) CalculateRankings(c *gin.Context) {
	standings, err := a.cs.CalculateRankings(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toStandings(standings))
}

type CreateWorkoutRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description" binding:"required"`
	BodyPart    domain.BodyPart   `json:"body_part" binding:"required"`
	Difficulty  domain.Difficulty `json:"difficulty" binding:"required"`
	Content     string            `json:"content" binding:"required"`
	ImageURL    string            `json:"image_url"`
}

func (a *API) CreateWorkout(c *gin.Context) {
	var req CreateWorkoutRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	w, err := a.ws.CreateWorkout(c.Request.Context(), workout.CreateWorkoutRequest{
		Title:       req.Title,
		Description: req.Description,
		BodyPart:    req.BodyPart,
		Difficulty:  req.Difficulty,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, toWorkout(*w))
}

func (a *API) DeleteWorkout(c *gin.Context) {
	if err := a.ws.DeleteWorkout(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.InvalidArgument("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
