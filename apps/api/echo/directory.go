package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lumiclass/teacherdir/core"
	"github.com/lumiclass/teacherdir/core/directory"
)

type directoryApi struct {
	svc        *directory.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerDirectoryAPI(
	g *echo.Group,
	svc *directory.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := directoryApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	g.GET("/teachers", api.list)
	g.POST("/match-teacher", api.match)
	g.GET("/match-history/:userId", api.history)
	g.POST("/refresh-teachers", api.refresh)
	g.GET("/health", api.health)
}

// Handlers

func (api *directoryApi) list(ctx echo.Context) error {
	res, err := api.svc.Teachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "resolving teacher directory")
	}
	return ctx.JSON(http.StatusOK, TeachersResponse{
		Success:  true,
		Teachers: res.Snapshot.Teachers,
		Cached:   res.Cached(),
	})
}

func (api *directoryApi) match(ctx echo.Context) error {
	var data MatchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MatchRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	match, err := api.svc.MatchTeacher(ctx.Request().Context(), data.UserID, data.DisplayName)
	if err != nil {
		return errors.Wrap(err, "matching teacher")
	}

	resp := MatchResponse{Success: true}
	if match != nil {
		resp.Match = &MatchPayload{
			Name:        match.Teacher.Name,
			DisplayName: match.Teacher.Display(),
			Confidence:  match.Confidence,
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *directoryApi) history(ctx echo.Context) error {
	userID := core.CleanString(ctx.Param("userId"))
	if userID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "userId", Error: "this field is required"})
	}

	decs, err := api.svc.MatchHistory(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "loading match history")
	}

	history := make([]HistoryEntry, 0, len(decs))
	for _, dec := range decs {
		entry := HistoryEntry{
			Confidence: dec.Confidence,
			CreatedAt:  dec.CreatedAt,
		}
		if dec.Matched {
			name := dec.TeacherName
			entry.TeacherName = &name
		}
		history = append(history, entry)
	}
	return ctx.JSON(http.StatusOK, HistoryResponse{Success: true, History: history})
}

func (api *directoryApi) refresh(ctx echo.Context) error {
	res, err := api.svc.Refresh(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "refreshing teacher directory")
	}

	message := "teacher directory refreshed"
	if res.Degraded() {
		message = "upstream unavailable; serving last saved directory"
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{
		Success:  true,
		Teachers: res.Snapshot.Teachers,
		Message:  message,
	})
}

func (api *directoryApi) health(ctx echo.Context) error {
	resp := HealthResponse{
		Success:   true,
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}
	if age, ok := api.svc.CacheAge(); ok {
		secs := age.Seconds()
		resp.CacheAge = &secs
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	TeachersResponse struct {
		Success  bool                `json:"success"`
		Teachers []directory.Teacher `json:"teachers"`
		Cached   bool                `json:"cached"`
	}

	MatchRequest struct {
		UserID      string `json:"userId" validate:"required"`
		DisplayName string `json:"displayName" validate:"required"`
	}

	MatchPayload struct {
		Name        string  `json:"name"`
		DisplayName string  `json:"display_name"`
		Confidence  float64 `json:"confidence"`
	}

	MatchResponse struct {
		Success bool          `json:"success"`
		Match   *MatchPayload `json:"match"`
	}

	HistoryEntry struct {
		TeacherName *string   `json:"teacher_name"`
		Confidence  float64   `json:"confidence"`
		CreatedAt   time.Time `json:"created_at"`
	}

	HistoryResponse struct {
		Success bool           `json:"success"`
		History []HistoryEntry `json:"history"`
	}

	RefreshResponse struct {
		Success  bool                `json:"success"`
		Teachers []directory.Teacher `json:"teachers"`
		Message  string              `json:"message"`
	}

	HealthResponse struct {
		Success   bool      `json:"success"`
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
		CacheAge  *float64  `json:"cache_age"`
	}
)

func (mr *MatchRequest) Validate(validate *validator.Validate) error {
	mr.UserID = core.CleanString(mr.UserID)
	mr.DisplayName = core.CleanString(mr.DisplayName)
	return validate.Struct(mr)
}
