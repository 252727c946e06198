package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ApplicationStatus string

const (
	ApplicationApplied   ApplicationStatus = "applied"
	ApplicationScreening ApplicationStatus = "screening"
	ApplicationSelected  ApplicationStatus = "selected"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// JobApplication links a candidate to a job. Only the columns the offer
// engine and screening read or write are mapped.
type JobApplication struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobID            uuid.UUID         `gorm:"type:uuid;not null;index"`
	Job              *Job              `gorm:"foreignKey:JobID"`
	CandidateID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	Candidate        *Candidate        `gorm:"foreignKey:CandidateID"`
	Status           ApplicationStatus `gorm:"type:varchar(30);not null;default:'applied';index"`
	CoverLetter      string
	AIScreeningScore *float64
	AIScreeningNotes string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (JobApplication) TableName() string {
	return "job_applications"
}

type Job struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title              string         `gorm:"not null"`
	Description        string
	Location           string
	SkillsRequired     pq.StringArray `gorm:"type:text[]"`
	Requirements       pq.StringArray `gorm:"type:text[]"`
	ExperienceLevel    string
	MinAssessmentScore *int
	SalaryMin          *float64
	SalaryMax          *float64
	Currency           string
	CreatedBy          string `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Candidate struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FirstName       string
	LastName        string
	Email           string         `gorm:"index"`
	Skills          pq.StringArray `gorm:"type:text[]"`
	ExperienceYears int
	ResumeText      string
	AISummary       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c *Candidate) FullName() string {
	if c == nil {
		return ""
	}
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}
