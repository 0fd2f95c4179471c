package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type RunStatus string

const (
	RunInitializing RunStatus = "INITIALIZING"
	RunRunning      RunStatus = "RUNNING"
	RunCompleted    RunStatus = "COMPLETED"
	RunFailed       RunStatus = "FAILED"
	RunAborted      RunStatus = "ABORTED"
)

func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunAborted
}

type Run struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	GameID         string         `gorm:"index"`
	Scenario       int            `gorm:"default:0"`
	PlayerID       string         `gorm:"index"`
	Policy         string         `gorm:"type:varchar(50);not null"`
	Capacity       int            `gorm:"not null"`
	Status         RunStatus      `gorm:"type:varchar(50);default:'INITIALIZING';index"`
	Admitted       int            `gorm:"default:0"`
	Rejected       int            `gorm:"default:0"`
	Processed      int            `gorm:"default:0"`
	FailureReason  string
	RareAttributes pq.StringArray `gorm:"type:text[]"`
	Constraints    JSONB          `gorm:"type:jsonb;default:'{}'"`
	ReasonCounts   JSONB          `gorm:"type:jsonb;default:'{}'"`
	NeedRemaining  JSONB          `gorm:"type:jsonb;default:'{}'"`
	StartedAt      *time.Time
	FinishedAt     *time.Time
	Decisions      []Decision `gorm:"foreignKey:RunID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Decision struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	RunID          uuid.UUID `gorm:"type:uuid;not null;index:idx_decisions_run_index"`
	CandidateIndex int       `gorm:"not null;index:idx_decisions_run_index"`
	Accept         bool      `gorm:"not null"`
	Reason         Reason    `gorm:"type:varchar(50);not null"`
	Attributes     JSONB     `gorm:"type:jsonb"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Decision) TableName() string {
	return "run_decisions"
}

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) GormDataType() string {
	return "jsonb"
}
