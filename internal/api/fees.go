package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/fees"
	"savings-circle/rosca/internal/models/dtos"
)

// GetFeeRatiosHandler handles GET /api/v1/fees/ratios?duration=N
//
// Returns the per-turn fee ratio schedule for an association of N turns.
func GetFeeRatiosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
		if err != nil || duration < 0 {
			common.RespondError(w, initTime, errors.New("duration must be a non-negative integer"), "Invalid duration", http.StatusBadRequest)
			return
		}
		if duration > constants.MaxAssociationDuration {
			common.RespondError(w, initTime,
				fmt.Errorf("duration must not exceed %d", constants.MaxAssociationDuration),
				"Invalid duration", http.StatusBadRequest)
			return
		}

		ratios := fees.Ratios(duration)
		resp := dtos.FeeSchedule{
			Duration: duration,
			Turns:    make([]dtos.FeeRatioView, 0, len(ratios)),
		}
		for i, ratio := range ratios {
			resp.Turns = append(resp.Turns, dtos.FeeRatioView{TurnNumber: i + 1, Ratio: ratio})
		}

		common.RespondSuccess(w, initTime, "Fee ratios", resp)
	}
}
