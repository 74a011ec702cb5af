// Package sweepevents lets an external scheduler trigger the retry sweep.
package sweepevents

import (
	"context"
	"net/http"

	"github.com/feyxa/commerce/internal/service/services/dispatchsvc"
	"github.com/feyxa/commerce/internal/transport/http/respond"
)

type service interface {
	Sweep(ctx context.Context) (dispatchsvc.SweepReport, error)
}

func SweepEvents(w http.ResponseWriter, r *http.Request, service service) {
	report, err := service.Sweep(r.Context())
	if err != nil {
		respond.Fail(w, "Error sweeping events", err)

		return
	}

	respond.JSON(w, http.StatusOK, report)
}
