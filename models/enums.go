package models

import (
	"errors"
)

// CableStatus is the lifecycle state of a cable in the vessel registry.
type CableStatus string

const (
	CableStatusNotLaid    CableStatus = "NotLaid"
	CableStatusCut        CableStatus = "Cut"
	CableStatusLaid       CableStatus = "Laid"
	CableStatusRemoved    CableStatus = "Removed"
	CableStatusBlocked    CableStatus = "Blocked"
	CableStatusEliminated CableStatus = "Eliminated"
)

func ParseCableStatus(str string) (CableStatus, error) {
	cableStatus := map[string]CableStatus{
		"NotLaid":    CableStatusNotLaid,
		"Cut":        CableStatusCut,
		"Laid":       CableStatusLaid,
		"Removed":    CableStatusRemoved,
		"Blocked":    CableStatusBlocked,
		"Eliminated": CableStatusEliminated,
	}

	s, ok := cableStatus[str]
	if !ok {
		return "", errors.New("invalid cable status")
	}
	return s, nil
}

func (s CableStatus) Valid() bool {
	_, err := ParseCableStatus(string(s))
	return err == nil
}

// ProgressSide identifies the cable end a partial pull started from.
type ProgressSide string

const (
	ProgressSideFromEnd ProgressSide = "FromEnd"
	ProgressSideToEnd   ProgressSide = "ToEnd"
)

func ParseProgressSide(str string) (ProgressSide, error) {
	progressSide := map[string]ProgressSide{
		"FromEnd": ProgressSideFromEnd,
		"ToEnd":   ProgressSideToEnd,
	}

	s, ok := progressSide[str]
	if !ok {
		return "", errors.New("invalid progress side")
	}
	return s, nil
}

func (s ProgressSide) Valid() bool {
	_, err := ParseProgressSide(string(s))
	return err == nil
}

// StepType distinguishes a first-time pull from a repeat pass over the same cable.
type StepType string

const (
	StepTypeLaying StepType = "Laying"
	StepTypeRework StepType = "Rework"
)

func ParseStepType(str string) (StepType, error) {
	stepType := map[string]StepType{
		"Laying": StepTypeLaying,
		"Rework": StepTypeRework,
	}

	s, ok := stepType[str]
	if !ok {
		return "", errors.New("invalid step type")
	}
	return s, nil
}

func (s StepType) Valid() bool {
	_, err := ParseStepType(string(s))
	return err == nil
}

type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "Draft"
	ReportStatusSubmitted ReportStatus = "Submitted"
	ReportStatusValidated ReportStatus = "Validated"
)

func ParseReportStatus(str string) (ReportStatus, error) {
	reportStatus := map[string]ReportStatus{
		"Draft":     ReportStatusDraft,
		"Submitted": ReportStatusSubmitted,
		"Validated": ReportStatusValidated,
	}

	s, ok := reportStatus[str]
	if !ok {
		return "", errors.New("invalid report status")
	}
	return s, nil
}

func (s ReportStatus) Valid() bool {
	_, err := ParseReportStatus(string(s))
	return err == nil
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "A"
	UserRoleOffice UserRole = "O"
	UserRoleCrew   UserRole = "C"
)

func ParseUserRole(str string) (UserRole, error) {
	userRole := map[string]UserRole{
		"A": UserRoleAdmin,
		"O": UserRoleOffice,
		"C": UserRoleCrew,
	}

	r, ok := userRole[str]
	if !ok {
		return "", errors.New("invalid user role")
	}
	return r, nil
}

// Capability is the explicit permission set a caller passes into mutations.
// It is derived from the session, never guessed inside model code.
type Capability struct {
	UserId int
	Role   UserRole
}

// CanMutateCanonical reports whether the caller may write the canonical
// progress channel. Crew leads only write the daily channel.
func (c Capability) CanMutateCanonical() bool {
	return c.Role == UserRoleAdmin || c.Role == UserRoleOffice
}

// CanEscalateStatus reports whether the caller may flip a cable's status as a
// side effect of a progress write.
func (c Capability) CanEscalateStatus() bool {
	return c.Role == UserRoleAdmin || c.Role == UserRoleOffice
}

func (c Capability) CanMutateDailyLinks() bool {
	return c.Role != ""
}

func (c Capability) CanImport() bool {
	return c.Role == UserRoleAdmin || c.Role == UserRoleOffice
}

func (c Capability) CanValidateReports() bool {
	return c.Role == UserRoleAdmin || c.Role == UserRoleOffice
}
