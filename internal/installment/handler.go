package installment

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hirepurchase/hpadmin/internal/platform/httpx"
)

// Handler exposes the plan calculator over HTTP.
type Handler struct {
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger, validator: validator.New()}
}

// MountRoutes registers calculator routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/plan", h.plan)
}

type planRequest struct {
	Price             float64 `json:"price" validate:"gt=0"`
	DownPayment       float64 `json:"down_payment" validate:"gte=0,ltfield=Price"`
	AnnualRatePercent float64 `json:"annual_rate_percent" validate:"gte=0"`
	Months            int     `json:"months" validate:"gt=0,lte=120"`
	StartDate         string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type planResponse struct {
	Plan     Plan               `json:"plan"`
	EndDate  string             `json:"end_date,omitempty"`
	Schedule []ScheduledPayment `json:"schedule,omitempty"`
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
			}
			httpx.ValidationProblem(w, "invalid plan request", msgs)
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	plan, err := Calculate(PlanInput{
		Price:             decimal.NewFromFloat(req.Price),
		DownPayment:       decimal.NewFromFloat(req.DownPayment),
		AnnualRatePercent: decimal.NewFromFloat(req.AnnualRatePercent),
		Months:            req.Months,
	})
	if err != nil {
		h.logger.Warn("calculate plan", slog.Any("error", err))
		httpx.ValidationProblem(w, "invalid plan request", []string{err.Error()})
		return
	}

	resp := planResponse{Plan: plan}
	if req.StartDate != "" {
		start, _ := time.Parse(time.DateOnly, req.StartDate)
		resp.Schedule = BuildSchedule(plan, start)
		resp.EndDate = EndDate(start, plan.Months).Format(time.DateOnly)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
