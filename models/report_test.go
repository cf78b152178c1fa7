package models

import (
	"testing"
	"time"
)

func TestReportSignature_StableAndContentSensitive(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	input := &NewDailyReport{ReportDate: date, Crew: "Squadra A", Zone: "Ponte 3", Note: "posa mattina"}

	if input.signature() != input.signature() {
		t.Fatalf("signature must be deterministic")
	}

	same := &NewDailyReport{ReportDate: date.Add(5 * time.Hour), Crew: "Squadra A", Zone: "Ponte 3", Note: "posa mattina"}
	if input.signature() != same.signature() {
		t.Fatalf("time of day must not change the signature")
	}

	changed := &NewDailyReport{ReportDate: date, Crew: "Squadra A", Zone: "Ponte 3", Note: "posa pomeriggio"}
	if input.signature() == changed.signature() {
		t.Fatalf("different note must change the signature")
	}
}

func TestReportEditable(t *testing.T) {
	t.Setenv("STRICT_REPORT_IMMUTABLE", "")

	if !(DailyReport{Status: ReportStatusDraft}).Editable() {
		t.Fatalf("draft must be editable")
	}
	if !(DailyReport{Status: ReportStatusSubmitted}).Editable() {
		t.Fatalf("submitted must stay editable without strict immutability")
	}
	if (DailyReport{Status: ReportStatusValidated}).Editable() {
		t.Fatalf("validated must never be editable")
	}

	t.Setenv("STRICT_REPORT_IMMUTABLE", "true")
	if (DailyReport{Status: ReportStatusSubmitted}).Editable() {
		t.Fatalf("submitted must be locked under strict immutability")
	}
}

func TestReportOwnership(t *testing.T) {
	report := DailyReport{OwnerId: 7}

	if !report.ownedBy(Capability{UserId: 7, Role: UserRoleCrew}) {
		t.Fatalf("owner crew must have access")
	}
	if report.ownedBy(Capability{UserId: 8, Role: UserRoleCrew}) {
		t.Fatalf("other crew must not have access")
	}
	if !report.ownedBy(Capability{UserId: 99, Role: UserRoleOffice}) {
		t.Fatalf("office must have access to any report")
	}
	if !report.ownedBy(Capability{UserId: 99, Role: UserRoleAdmin}) {
		t.Fatalf("admin must have access to any report")
	}
}
