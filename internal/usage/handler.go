package usage

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/axoncore/axoncore/internal/api"
	"github.com/axoncore/axoncore/internal/pricing"
)

type EstimateRequest struct {
	Input  string `json:"input" validate:"max=200000"`
	Output string `json:"output" validate:"max=200000"`
	Model  string `json:"model" validate:"required,max=128"`
}

// EstimateResponse adds whether the default model's rates were used.
type EstimateResponse struct {
	Estimate
	DefaultRate bool `json:"default_rate"`
}

var validate = validator.New()

// EstimateHandler serves POST /usage/estimate.
func EstimateHandler(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	model := pricing.ModelID(req.Model)
	_, fallback := pricing.RateFor(model)
	api.JSON(w, http.StatusOK, EstimateResponse{
		Estimate:    EstimateUsage(req.Input, req.Output, model),
		DefaultRate: fallback,
	})
}
