package models

import (
	"time"
)

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

// key
func (c CableRecord) GetId() int {
	return c.ID
}

func (c CableRecord) GetDefault(id int) Data {
	return CableRecord{
		ID:        id,
		Status:    CableStatusNotLaid,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (r DailyReport) GetId() int {
	return r.ID
}

func (r DailyReport) GetDefault(id int) Data {
	return DailyReport{
		ID:         id,
		ReportDate: time.Now(),
		Status:     ReportStatusDraft,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func (l DailyLink) GetId() int {
	return l.ID
}

func (l DailyLink) GetDefault(id int) Data {
	return DailyLink{
		ID:        id,
		StepType:  StepTypeLaying,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (u User) GetId() int {
	return u.ID
}

func (u User) GetDefault(id int) Data {
	return User{
		ID:        id,
		Role:      UserRoleCrew,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// loader loading more than one model by one id
type RelatedData interface {
	GetReferenceId() int
}

func (l DailyLink) GetReferenceId() int {
	return l.ReportId
}
