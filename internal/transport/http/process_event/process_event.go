// Package processevent is the receiving end of the http event transport.
package processevent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/transport/http/respond"
	"github.com/google/uuid"
)

type service interface {
	Process(ctx context.Context, msg eventlog.Message) (eventlog.Outcome, error)
}

type processEventResponse struct {
	Outcome eventlog.Outcome `json:"outcome"`
	Error   string           `json:"error,omitempty"`
}

// ProcessEvent answers 200 with the outcome once the row has recorded it, including handler
// failures, which the retry sweep picks up. Only storage errors answer 500.
func ProcessEvent(w http.ResponseWriter, r *http.Request, service service) {
	msg := eventlog.Message{}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding event delivery", "error", err)

		return
	}
	if msg.EventID == uuid.Nil {
		respond.Error(w, http.StatusBadRequest, "event_id is required")

		return
	}

	outcome, err := service.Process(r.Context(), msg)
	if err != nil {
		slog.Error("Error processing event", "event_id", msg.EventID, "event_type", msg.EventType, "error", err)
		respond.JSON(w, http.StatusInternalServerError, processEventResponse{
			Outcome: eventlog.OutcomeFailed,
			Error:   http.StatusText(http.StatusInternalServerError),
		})

		return
	}

	respond.JSON(w, http.StatusOK, processEventResponse{Outcome: outcome})
}
