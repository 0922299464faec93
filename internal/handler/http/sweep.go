package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
)

type SweepHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
}

type sweepHandlerImpl struct {
	sweeper sweep.Sweeper
}

func NewSweepHandler(sweeper sweep.Sweeper) SweepHandler {
	return &sweepHandlerImpl{sweeper: sweeper}
}

// Run handles POST /sweeps. A skipped sweep is still a successful call.
func (h *sweepHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	var req sweep.SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.sweeper.Sweep(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Sweep completed"
	if result.Skipped {
		message = "Sweep skipped: " + string(result.SkipReason)
	} else if !result.Completed {
		message = "Sweep finished with failures and will be retried"
	}
	response.SuccessWithMessage(w, message, result)
}
