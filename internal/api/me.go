package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/measurement"
	"github.com/victornm/botm/internal/member"
)

func (a *API) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, toMember(currentMember(c)))
}

type UpdateMeRequest struct {
	Name             string              `json:"name" binding:"required,min=2"`
	Email            string              `json:"email" binding:"required,email"`
	Gender           domain.Gender       `json:"gender" binding:"omitempty,oneof=MALE FEMALE"`
	Goals            string              `json:"goals"`
	TrainingDuration string              `json:"training_duration"`
	CurrentWeight    decimal.NullDecimal `json:"current_weight"`
	AvatarURL        string              `json:"avatar_url"`
}

func (a *API) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	m, err := a.ms.UpdateProfile(c.Request.Context(), member.UpdateProfileRequest{
		MemberID:         currentMember(c).MemberID,
		Name:             req.Name,
		Email:            req.Email,
		Gender:           req.Gender,
		Goals:            req.Goals,
		TrainingDuration: req.TrainingDuration,
		CurrentWeight:    req.CurrentWeight,
		AvatarURL:        req.AvatarURL,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toMember(m))
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (a *API) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	err := a.ms.UpdatePassword(c.Request.Context(), member.UpdatePasswordRequest{
		MemberID:        currentMember(c).MemberID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type MeasurementsResponse struct {
	Measurements []Measurement `json:"measurements"`
	Progress     Progress      `json:"progress"`
}

func (a *API) ListMeasurements(c *gin.Context) {
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}
	if err := bindQuery(c, &q); err != nil {
		a.fail(c, err)
		return
	}

	history, err := a.mms.History(c.Request.Context(), measurement.HistoryRequest{
		MemberID: currentMember(c).MemberID,
		Limit:    q.Limit,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MeasurementsResponse{
		Measurements: mapSlice(history, toMeasurement),
		Progress:     toProgress(measurement.ComputeProgress(history)),
	})
}

type AddMeasurementRequest struct {
	Weight   decimal.Decimal     `json:"weight"`
	Chest    decimal.NullDecimal `json:"chest"`
	Arms     decimal.NullDecimal `json:"arms"`
	Waist    decimal.NullDecimal `json:"waist"`
	Thighs   decimal.NullDecimal `json:"thighs"`
	Neck     decimal.NullDecimal `json:"neck"`
	Glutes   decimal.NullDecimal `json:"glutes"`
	PhotoURL string              `json:"photo_url"`
}

func (a *API) AddMeasurement(c *gin.Context) {
	var req AddMeasurementRequest
	if err := bind(c, &req); err != nil {
		a.fail(c, err)
		return
	}

	m, err := a.mms.AddMeasurement(c.Request.Context(), measurement.AddMeasurementRequest{
		MemberID: currentMember(c).MemberID,
		Weight:   req.Weight,
		Chest:    req.Chest,
		Arms:     req.Arms,
		Waist:    req.Waist,
		Thighs:   req.Thighs,
		Neck:     req.Neck,
		Glutes:   req.Glutes,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMeasurement(*m))
}
