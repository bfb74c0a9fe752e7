package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/member"
)

type RegisterRequest struct {
	Name             string              `json:"name" binding:"required,min=2"`
	Email            string              `json:"email" binding:"required,email"`
	Password         string              `json:"password" binding:"required,min=6"`
	Gender           domain.Gender       `json:"gender" binding:"required,oneof=MALE FEMALE"`
	AvatarURL        string              `json:"avatar_url"`
	Goals            string              `json:"goals"`
	TrainingDuration string              `json:"training_duration"`
	CurrentWeight    decimal.Decimal     `json:"current_weight"`
	Chest            decimal.NullDecimal `json:"chest"`
	Arms             decimal.NullDecimal `json:"arms"`
	Waist            decimal.NullDecimal `json:"waist"`
	Thighs           decimal.NullDecimal `json:"thighs"`
	Neck             decimal.NullDecimal `json:"neck"`
	Glutes           decimal.NullDecimal `json:"glutes"`
}

type SessionResponse struct {
	Member Member `json:"member"`
	// Redirect is the landing area of the member.
	Redirect string `json:"redirect"`
}

func (a *API) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	m, err := a.ms.Register(c.Request.Context(), member.RegisterRequest{
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		Gender:           req.Gender,
		AvatarURL:        req.AvatarURL,
		Goals:            req.Goals,
		TrainingDuration: req.TrainingDuration,
		CurrentWeight:    req.CurrentWeight,
		Chest:            req.Chest,
		Arms:             req.Arms,
		Waist:            req.Waist,
		Thighs:           req.Thighs,
		Neck:             req.Neck,
		Glutes:           req.Glutes,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	a.startSession(c, http.StatusCreated, m)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (a *API) Login(c *gin.Context) {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	m, err := a.ms.Authenticate(c.Request.Context(), member.AuthenticateRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	a.startSession(c, http.StatusOK, m)
}

func (a *API) Logout(c *gin.Context) {
	a.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (a *API) startSession(c *gin.Context, status int, m *domain.Member) {
	token, _, err := a.ss.Issue(m.MemberID)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.setSessionCookie(c, token, int(a.ss.TTL().Seconds()))
	c.JSON(status, SessionResponse{
		Member:   toMember(m),
		Redirect: member.LandingPath(m),
	})
}
