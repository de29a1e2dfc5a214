package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"hedgefarm/internal/models"
)

type fakePnL struct {
	summaries []*models.PnLSummary
	err       error
}

func (f *fakePnL) Summaries(_ context.Context) ([]*models.PnLSummary, error) {
	return f.summaries, f.err
}

func TestGroupHandlerList(t *testing.T) {
	trading := &fakeTrading{groups: []models.GroupSnapshot{
		{ID: 1, Label: "alpha", State: models.GroupActive},
		{ID: 2, Label: "beta", State: models.GroupSuspended, Reason: models.ReasonAllPairsInsufficientMargin},
	}}
	h := NewGroupHandler(trading, &fakePnL{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var groups []models.GroupSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[1].Reason != models.ReasonAllPairsInsufficientMargin {
		t.Errorf("reason = %s", groups[1].Reason)
	}
}

func TestGroupHandlerPnL(t *testing.T) {
	trading := &fakeTrading{
		pnlFound: true,
		pnlRecord: models.GroupPnLRecord{
			GroupID: 1,
			Total:   7.5,
			Entries: []models.PnLEntry{{Cycle: 1, Pnl: 7.5, PositionCount: 2}},
		},
	}
	h := NewGroupHandler(trading, &fakePnL{}, zap.NewNop())

	req := mux.SetURLVars(
		httptest.NewRequest(http.MethodGet, "/api/v1/groups/1/pnl", nil),
		map[string]string{"id": "1"},
	)
	rec := httptest.NewRecorder()
	h.PnL(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var record models.GroupPnLRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if record.Total != 7.5 || len(record.Entries) != 1 {
		t.Errorf("record = %+v", record)
	}
}

func TestGroupHandlerPnLNotFound(t *testing.T) {
	h := NewGroupHandler(&fakeTrading{pnlFound: false}, &fakePnL{}, zap.NewNop())

	req := mux.SetURLVars(
		httptest.NewRequest(http.MethodGet, "/api/v1/groups/99/pnl", nil),
		map[string]string{"id": "99"},
	)
	rec := httptest.NewRecorder()
	h.PnL(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGroupHandlerPnLBadID(t *testing.T) {
	h := NewGroupHandler(&fakeTrading{}, &fakePnL{}, zap.NewNop())

	req := mux.SetURLVars(
		httptest.NewRequest(http.MethodGet, "/api/v1/groups/abc/pnl", nil),
		map[string]string{"id": "abc"},
	)
	rec := httptest.NewRecorder()
	h.PnL(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGroupHandlerSummaries(t *testing.T) {
	pnl := &fakePnL{summaries: []*models.PnLSummary{
		{GroupID: 1, GroupLabel: "alpha", Total: 10, Cycles: 4},
	}}
	h := NewGroupHandler(&fakeTrading{}, pnl, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pnl/summaries", nil)
	rec := httptest.NewRecorder()
	h.Summaries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var summaries []*models.PnLSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(summaries) != 1 || summaries[0].GroupLabel != "alpha" {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestGroupHandlerSummariesError(t *testing.T) {
	h := NewGroupHandler(&fakeTrading{}, &fakePnL{err: errors.New("db down")}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pnl/summaries", nil)
	rec := httptest.NewRecorder()
	h.Summaries(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
