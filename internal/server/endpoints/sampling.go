package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/api"
	"github.com/heavyclick/autoballoon-sub001/internal/sampling"
	"github.com/heavyclick/autoballoon-sub001/internal/svcctx"
)

// PlanRequest is the body of a standalone sampling plan lookup.
type PlanRequest struct {
	LotSize         int     `json:"lot_size"`
	AQL             float64 `json:"aql"`
	InspectionLevel string  `json:"inspection_level"`
}

// SamplingPlanEndpoint handles POST /api/sampling/plan.
type SamplingPlanEndpoint struct{}

var _ api.Endpoint = (*SamplingPlanEndpoint)(nil)

func (e *SamplingPlanEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sampling/plan", e.handler
}

func (e *SamplingPlanEndpoint) RequiresInit() bool { return true }

func (e *SamplingPlanEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}

	planner := svcctx.PlannerFrom(r.Context())
	if planner == nil {
		planner = sampling.TablePlanner{}
	}

	plan, err := planner.Plan(r.Context(), req.LotSize, req.AQL, sampling.Level(req.InspectionLevel))
	if err != nil {
		var oor *sampling.OutOfRangeError
		if errors.As(err, &oor) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func (e *SamplingPlanEndpoint) Command(getServerURL func() string) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "plan <lot-size> <aql>",
		Short: "Look up an acceptance sampling plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lotSize, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("lot-size must be an integer: %w", err)
			}
			aql, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("aql must be a number: %w", err)
			}

			client := api.NewClient(getServerURL())
			var resp sampling.SamplingPlan
			req := PlanRequest{LotSize: lotSize, AQL: aql, InspectionLevel: level}
			if err := client.Post(cmd.Context(), "/api/sampling/plan", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&level, "level", "II", "inspection level (I, II, III)")
	return cmd
}
