package models

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"github.com/shopspring/decimal"
)

func pct(v int) *int { return &v }

func side(s ProgressSide) *ProgressSide { return &s }

var officeCap = Capability{UserId: 1, Role: UserRoleOffice}
var crewCap = Capability{UserId: 2, Role: UserRoleCrew}

func TestNextCanonicalProgress_NilPercentReadsAsFullPull(t *testing.T) {
	cable := &CableRecord{ID: 1, Code: "C-1", Status: CableStatusCut}

	outcome, err := NextCanonicalProgress(cable, ProgressUpdate{Step: StepTypeLaying}, officeCap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Percent != nil || outcome.Side != nil {
		t.Fatalf("expected nil percent and side, got %+v", outcome)
	}
	// nil percent means 100, which is past the escalation threshold.
	if outcome.Status != CableStatusLaid || !outcome.Escalated {
		t.Fatalf("expected escalation to Laid, got %+v", outcome)
	}
}

func TestNextCanonicalProgress_PartialPullKeepsStatusBelowThreshold(t *testing.T) {
	cable := &CableRecord{ID: 1, Code: "C-1", Status: CableStatusLaid}

	outcome, err := NextCanonicalProgress(cable, ProgressUpdate{
		Percent: pct(50),
		Side:    side(ProgressSideToEnd),
		Step:    StepTypeLaying,
	}, officeCap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Escalated {
		t.Fatalf("already-laid cable must not escalate again: %+v", outcome)
	}
	if *outcome.Percent != 50 || *outcome.Side != ProgressSideToEnd {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestNextCanonicalProgress_ReworkForcesFullPull(t *testing.T) {
	cable := &CableRecord{ID: 1, Code: "C-1", Status: CableStatusLaid}

	outcome, err := NextCanonicalProgress(cable, ProgressUpdate{
		Percent: pct(70),
		Side:    side(ProgressSideToEnd),
		Step:    StepTypeRework,
	}, officeCap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Percent != nil || outcome.Side != nil {
		t.Fatalf("rework must resolve to a full pull, got %+v", outcome)
	}
	if outcome.Status != CableStatusLaid {
		t.Fatalf("unexpected status %s", outcome.Status)
	}
}

func TestNextCanonicalProgress_CrewCannotWriteCanonical(t *testing.T) {
	cable := &CableRecord{ID: 1, Code: "C-1", Status: CableStatusCut}

	_, err := NextCanonicalProgress(cable, ProgressUpdate{Percent: pct(50), Step: StepTypeLaying}, crewCap)
	if !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestNextCanonicalProgress_TerminalStatusesRejectProgress(t *testing.T) {
	for _, status := range []CableStatus{CableStatusRemoved, CableStatusEliminated} {
		cable := &CableRecord{ID: 1, Code: "C-1", Status: status}
		_, err := NextCanonicalProgress(cable, ProgressUpdate{Step: StepTypeLaying}, officeCap)
		if err == nil {
			t.Fatalf("expected error for %s cable", status)
		}
	}
}

func TestNextCanonicalProgress_InvalidPercentRejected(t *testing.T) {
	cable := &CableRecord{ID: 1, Code: "C-1", Status: CableStatusCut}
	for _, bad := range []int{0, 25, 60, 99, 101} {
		_, err := NextCanonicalProgress(cable, ProgressUpdate{Percent: pct(bad), Step: StepTypeLaying}, officeCap)
		if err == nil {
			t.Fatalf("expected percent %d to be rejected", bad)
		}
	}
}

func TestInstalledMeters(t *testing.T) {
	cases := []struct {
		length   string
		percent  *int
		expected string
	}{
		{"120", nil, "120"},
		{"120", pct(50), "60"},
		{"33.33", pct(70), "23.33"},
		{"0", nil, "0"},
	}
	for _, tc := range cases {
		length, _ := decimal.NewFromString(tc.length)
		got := InstalledMeters(length, tc.percent)
		if got.String() != tc.expected {
			t.Fatalf("InstalledMeters(%s, %v) expected %s, got %s",
				tc.length, tc.percent, tc.expected, got.String())
		}
	}
}

func TestEffectiveProgressAlwaysSerialized(t *testing.T) {
	cable := CableRecord{ID: 1, Code: "C-1", Status: CableStatusLaid}
	data, err := json.Marshal(&cable)
	if err != nil {
		t.Fatalf("marshal cable: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal cable: %v", err)
	}
	if out["progress_percent"] != nil {
		t.Fatalf("raw channel must stay nullable, got %v", out["progress_percent"])
	}
	if out["effective_percent"] != float64(100) || out["effective_side"] != string(ProgressSideFromEnd) {
		t.Fatalf("nil percent must read as 100/FromEnd, got %v/%v",
			out["effective_percent"], out["effective_side"])
	}

	link := DailyLink{ID: 2, CableId: 1, StepType: StepTypeLaying,
		ProgressPercent: pct(50), ProgressSide: side(ProgressSideToEnd)}
	data, err = json.Marshal(&link)
	if err != nil {
		t.Fatalf("marshal link: %v", err)
	}
	out = map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal link: %v", err)
	}
	if out["effective_percent"] != float64(50) || out["effective_side"] != string(ProgressSideToEnd) {
		t.Fatalf("set percent must pass through, got %v/%v",
			out["effective_percent"], out["effective_side"])
	}
}

// fakeProgressStore simulates a concurrent writer: the first failSwaps CAS
// attempts lose the race and mutate the stored row the way the winner would
// have.
type fakeProgressStore struct {
	cable     CableRecord
	failSwaps int
	reloads   int
	swaps     int
}

func (s *fakeProgressStore) ReloadCable(ctx context.Context, vesselId string, id int) (*CableRecord, error) {
	s.reloads++
	snapshot := s.cable
	return &snapshot, nil
}

func (s *fakeProgressStore) CompareAndSwapProgress(ctx context.Context, prior *CableRecord, outcome ProgressOutcome) (bool, error) {
	s.swaps++
	if s.failSwaps > 0 {
		s.failSwaps--
		// the concurrent winner moved the row
		s.cable.Status = CableStatusLaid
		s.cable.ProgressPercent = pct(50)
		s.cable.ProgressSide = side(ProgressSideFromEnd)
		return false, nil
	}
	if EffectivePercent(prior.ProgressPercent) != EffectivePercent(s.cable.ProgressPercent) ||
		prior.Status != s.cable.Status {
		return false, nil
	}
	s.cable.Status = outcome.Status
	s.cable.ProgressPercent = outcome.Percent
	s.cable.ProgressSide = outcome.Side
	return true, nil
}

func progressCtx() context.Context {
	return utils.SetVesselIdInContext(context.Background(), "vessel-1")
}

func TestUpdateCanonicalProgress_RetriesAfterLostRace(t *testing.T) {
	store := &fakeProgressStore{
		cable:     CableRecord{ID: 1, Code: "C-1", Status: CableStatusCut},
		failSwaps: 1,
	}

	cable, err := UpdateCanonicalProgress(progressCtx(), store, 1, ProgressUpdate{
		Percent: pct(70),
		Step:    StepTypeLaying,
	}, officeCap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.reloads != 2 || store.swaps != 2 {
		t.Fatalf("expected one retry (2 reloads, 2 swaps), got reloads=%d swaps=%d",
			store.reloads, store.swaps)
	}
	if *cable.ProgressPercent != 70 || cable.Status != CableStatusLaid {
		t.Fatalf("unexpected final state %+v", cable)
	}
}

func TestUpdateCanonicalProgress_GivesUpAfterRepeatedRaces(t *testing.T) {
	store := &fakeProgressStore{
		cable:     CableRecord{ID: 1, Code: "C-1", Status: CableStatusCut},
		failSwaps: 100,
	}

	_, err := UpdateCanonicalProgress(progressCtx(), store, 1, ProgressUpdate{
		Percent: pct(70),
		Step:    StepTypeLaying,
	}, officeCap)
	if !errors.Is(err, ErrStaleProgress) {
		t.Fatalf("expected ErrStaleProgress, got %v", err)
	}
	if store.swaps != 3 {
		t.Fatalf("expected 3 bounded attempts, got %d", store.swaps)
	}
}

func TestApplyLinksToCanonical_DailyPercentEscalatesToLaid(t *testing.T) {
	store := &fakeProgressStore{
		cable: CableRecord{ID: 9, Code: "C-9", Status: CableStatusNotLaid},
	}
	links := []*DailyLink{{
		ReportId:        1,
		CableId:         9,
		CachedCode:      "C-9",
		StepType:        StepTypeLaying,
		ProgressPercent: pct(70),
		ProgressSide:    side(ProgressSideFromEnd),
	}}

	if err := ApplyLinksToCanonical(progressCtx(), store, links, officeCap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.cable.Status != CableStatusLaid {
		t.Fatalf("expected a 70%% daily pull to leave the cable Laid, got %s", store.cable.Status)
	}
	if store.cable.ProgressPercent == nil || *store.cable.ProgressPercent != 70 {
		t.Fatalf("expected canonical percent 70, got %+v", store.cable.ProgressPercent)
	}
}

func TestApplyLinksToCanonical_ReworkLinkResolvesToFullPull(t *testing.T) {
	store := &fakeProgressStore{
		cable: CableRecord{ID: 9, Code: "C-9", Status: CableStatusLaid, ProgressPercent: pct(50)},
	}
	links := []*DailyLink{{
		CableId:         9,
		CachedCode:      "C-9",
		StepType:        StepTypeRework,
		ProgressPercent: pct(50),
	}}

	if err := ApplyLinksToCanonical(progressCtx(), store, links, officeCap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.cable.ProgressPercent != nil || store.cable.ProgressSide != nil {
		t.Fatalf("rework replay must persist a full pull, got %+v", store.cable)
	}
}

func TestApplyLinksToCanonical_CrewCannotReplay(t *testing.T) {
	store := &fakeProgressStore{cable: CableRecord{ID: 9, Code: "C-9", Status: CableStatusNotLaid}}
	links := []*DailyLink{{CableId: 9, CachedCode: "C-9", StepType: StepTypeLaying, ProgressPercent: pct(70)}}

	err := ApplyLinksToCanonical(progressCtx(), store, links, crewCap)
	if !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if store.cable.Status != CableStatusNotLaid {
		t.Fatalf("crew replay must not move canonical status, got %s", store.cable.Status)
	}
}

func TestUpdateCanonicalProgress_RequiresVesselContext(t *testing.T) {
	store := &fakeProgressStore{cable: CableRecord{ID: 1, Status: CableStatusCut}}

	_, err := UpdateCanonicalProgress(context.Background(), store, 1, ProgressUpdate{Step: StepTypeLaying}, officeCap)
	if err == nil {
		t.Fatalf("expected error without vessel in context")
	}
	if store.reloads != 0 {
		t.Fatalf("store must not be touched without a vessel, got %d reloads", store.reloads)
	}
}
