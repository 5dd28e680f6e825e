package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/models/entities"
)

// HealthCheckHandler handles GET /healthCheck
//
// Reports postgres and, when enabled, redis. Answers 503 when any is down.
func HealthCheckHandler(deps *Dependencies, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := make(map[string]entities.ServiceStatus)

		// Check postgres
		pgstatus := "ok"
		pgDetails := "Postgres Connected"
		if err := deps.SQL.PingContext(ctx); err != nil {
			pgstatus = "down"
			pgDetails = err.Error()
		}
		services["postgres"] = entities.ServiceStatus{
			Status:  pgstatus,
			Details: pgDetails,
		}

		if deps.Redis != nil {
			redisStatus := "ok"
			redisDetails := "Redis Connected"
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				redisStatus = "down"
				redisDetails = err.Error()
			}
			services["redis"] = entities.ServiceStatus{
				Status:  redisStatus,
				Details: redisDetails,
			}

			if stream, ok := deps.Services.Events.(*common.CycleEventStream); ok && redisStatus == "ok" {
				if n, err := stream.StreamLength(ctx); err == nil {
					services["cycle_events"] = entities.ServiceStatus{
						Status:  "ok",
						Details: fmt.Sprintf("%d events retained", n),
					}
				}
			}
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		now := time.Now()
		uptime := now.Sub(upSince).Round(time.Second).String()

		resp := entities.HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			UpSince:  upSince,
			Uptime:   uptime,
		}
		w.Header().Set("Content-Type", "application/json")
		if overallStatus != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
