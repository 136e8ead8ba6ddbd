package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"PinguinGuard/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ParentalControlController serves the /parental-control routes.
type ParentalControlController struct {
	Policies PolicyServiceInterface
	Unblock  UnblockServiceInterface
	Usage    UsageServiceInterface
	History  HistoryServiceInterface
	Status   StatusServiceInterface
	Logger   *zap.Logger
}

func NewParentalControlController(
	policies PolicyServiceInterface,
	unblock UnblockServiceInterface,
	usage UsageServiceInterface,
	history HistoryServiceInterface,
	status StatusServiceInterface,
	logger *zap.Logger,
) *ParentalControlController {
	return &ParentalControlController{
		Policies: policies,
		Unblock:  unblock,
		Usage:    usage,
		History:  history,
		Status:   status,
		Logger:   logger,
	}
}

func (pc *ParentalControlController) GetChildPolicy(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	policy, err := pc.Policies.Get(c.Request.Context(), s, c.Param("childId"))
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": policy})
}

func (pc *ParentalControlController) SetBlock(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var input struct {
		IsBlocked   *bool   `json:"isBlocked"`
		BlockReason *string `json:"blockReason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if input.IsBlocked == nil {
		respondError(c, pc.Logger, fmt.Errorf("isBlocked is required: %w", apperrors.ErrInvalidArgument))
		return
	}

	policy, err := pc.Policies.SetBlock(c.Request.Context(), s, c.Param("childId"), *input.IsBlocked, input.BlockReason)
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": policy})
}

func (pc *ParentalControlController) SetTimeSlots(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var input struct {
		AllowedTimeSlots *[]string `json:"allowedTimeSlots"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if input.AllowedTimeSlots == nil {
		respondError(c, pc.Logger, fmt.Errorf("allowedTimeSlots is required: %w", apperrors.ErrInvalidArgument))
		return
	}

	policy, err := pc.Policies.SetTimeSlots(c.Request.Context(), s, c.Param("childId"), *input.AllowedTimeSlots)
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": policy})
}

// SetScreenTimeLimit accepts {"dailyScreenTimeLimit": 90}; null removes the
// limit, a missing field is rejected.
func (pc *ParentalControlController) SetScreenTimeLimit(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var input struct {
		DailyScreenTimeLimit json.RawMessage `json:"dailyScreenTimeLimit"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if len(input.DailyScreenTimeLimit) == 0 {
		respondError(c, pc.Logger, fmt.Errorf("dailyScreenTimeLimit is required: %w", apperrors.ErrInvalidArgument))
		return
	}
	var limit *int
	if !bytes.Equal(input.DailyScreenTimeLimit, []byte("null")) {
		var minutes int
		if err := json.Unmarshal(input.DailyScreenTimeLimit, &minutes); err != nil {
			respondError(c, pc.Logger, fmt.Errorf("dailyScreenTimeLimit must be a whole number of minutes: %w", apperrors.ErrInvalidArgument))
			return
		}
		limit = &minutes
	}

	policy, err := pc.Policies.SetScreenTimeLimit(c.Request.Context(), s, c.Param("childId"), limit)
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": policy})
}

func (pc *ParentalControlController) ListUnblockRequests(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	requests, err := pc.Unblock.List(c.Request.Context(), s, c.Query("status"))
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": requests})
}

func (pc *ParentalControlController) CreateUnblockRequest(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	req, err := pc.Unblock.Create(c.Request.Context(), s, input.Reason)
	switch {
	case apperrors.Committed(err):
		respondWarning(c, http.StatusCreated, req, err)
	case err != nil:
		respondError(c, pc.Logger, err)
	default:
		c.JSON(http.StatusCreated, gin.H{"data": req})
	}
}

// RespondToUnblockRequest answers 200 with a warning when the request was
// resolved but the block could not be lifted or the history entry is missing.
func (pc *ParentalControlController) RespondToUnblockRequest(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var input struct {
		Approve        *bool   `json:"approve"`
		ParentResponse *string `json:"parentResponse"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if input.Approve == nil {
		respondError(c, pc.Logger, fmt.Errorf("approve is required: %w", apperrors.ErrInvalidArgument))
		return
	}

	req, err := pc.Unblock.Respond(c.Request.Context(), s, c.Param("id"), *input.Approve, input.ParentResponse)
	switch {
	case apperrors.Committed(err):
		respondWarning(c, http.StatusOK, req, err)
	case err != nil:
		respondError(c, pc.Logger, err)
	default:
		c.JSON(http.StatusOK, gin.H{"data": req})
	}
}

func (pc *ParentalControlController) TodayScreenTime(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	record, err := pc.Usage.Today(c.Request.Context(), s, c.Query("childId"))
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (pc *ParentalControlController) ScreenTimeHistory(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	days, err := queryInt(c, "days")
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	records, err := pc.Usage.History(c.Request.Context(), s, c.Query("childId"), days)
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (pc *ParentalControlController) ReportScreenTime(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var input struct {
		TotalMinutesUsed *int `json:"totalMinutesUsed"`
		SessionCount     int  `json:"sessionCount"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if input.TotalMinutesUsed == nil {
		respondError(c, pc.Logger, fmt.Errorf("totalMinutesUsed is required: %w", apperrors.ErrInvalidArgument))
		return
	}

	record, err := pc.Usage.Report(c.Request.Context(), s, *input.TotalMinutesUsed, input.SessionCount)
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (pc *ParentalControlController) ListHistory(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	entries, err := pc.History.List(c.Request.Context(), s, limit)
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (pc *ParentalControlController) MyStatus(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	status, err := pc.Status.Status(c.Request.Context(), s, c.Query("childId"))
	if err != nil {
		respondError(c, pc.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}
