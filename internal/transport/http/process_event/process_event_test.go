package processevent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	outcome eventlog.Outcome
	err     error
	got     eventlog.Message
}

func (s *stubService) Process(_ context.Context, msg eventlog.Message) (eventlog.Outcome, error) {
	s.got = msg

	return s.outcome, s.err
}

func post(svc service, body string) (*httptest.ResponseRecorder, processEventResponse) {
	rec := httptest.NewRecorder()
	ProcessEvent(rec, httptest.NewRequest(http.MethodPost, "/process-event", strings.NewReader(body)), svc)

	var resp processEventResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)

	return rec, resp
}

func TestProcessEvent(t *testing.T) {
	eventID := uuid.New()
	body := `{"event_id":"` + eventID.String() + `","event_type":"order.created","payload":{"order_number":"FX-1"}}`

	tests := []struct {
		name     string
		svc      *stubService
		wantCode int
		want     eventlog.Outcome
	}{
		{name: "processed", svc: &stubService{outcome: eventlog.OutcomeProcessed}, wantCode: http.StatusOK, want: eventlog.OutcomeProcessed},
		{name: "handler failure still answers 200", svc: &stubService{outcome: eventlog.OutcomeFailed}, wantCode: http.StatusOK, want: eventlog.OutcomeFailed},
		{name: "duplicate delivery", svc: &stubService{outcome: eventlog.OutcomeSkipped}, wantCode: http.StatusOK, want: eventlog.OutcomeSkipped},
		{name: "storage error", svc: &stubService{err: errors.New("db down")}, wantCode: http.StatusInternalServerError, want: eventlog.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := post(tt.svc, body)

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.want, resp.Outcome)
			assert.Equal(t, eventID, tt.svc.got.EventID)
			assert.Equal(t, "order.created", tt.svc.got.EventType)
			assert.NotContains(t, rec.Body.String(), "db down")
		})
	}
}

func TestProcessEvent_RejectsMalformedDelivery(t *testing.T) {
	svc := &stubService{}

	rec, _ := post(svc, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = post(svc, `{"event_type":"order.created"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
