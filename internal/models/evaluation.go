package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resale-api/internal/pkg/errors"
)

type InputType string

const (
	TextInput  InputType = "text"
	ImageInput InputType = "image"
)

func (t InputType) Valid() bool {
	return t == TextInput || t == ImageInput
}

type Decision string

const (
	DecisionBuyNow    Decision = "BUY_NOW"
	DecisionBuy       Decision = "BUY"
	DecisionNegotiate Decision = "NEGOTIATE"
	DecisionPass      Decision = "PASS"
	DecisionRiskAlert Decision = "RISK_ALERT"
)

// Evaluation is one scored assessment request and its result. Rows are
// immutable once written; there is no update or delete path.
type Evaluation struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	InputType        InputType      `gorm:"type:varchar(10);not null" json:"input_type"`
	InputProduct     string         `gorm:"type:varchar(255);not null" json:"input_product"`
	InputPrice       int64          `gorm:"not null" json:"input_price"`
	InputDescription string         `gorm:"type:text" json:"input_description,omitempty"`
	OutputScore      float64        `gorm:"not null" json:"output_score"`
	OutputDecision   Decision       `gorm:"type:varchar(20);not null" json:"output_decision"`
	OutputFull       datatypes.JSON `gorm:"type:jsonb" json:"output_full"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	Profile          *Profile       `gorm:"foreignKey:UserID" json:"-"`
}

func (e *Evaluation) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if !e.InputType.Valid() {
		return errors.ErrInvalidInputType
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return nil
}

func (Evaluation) TableName() string {
	return "evaluations"
}
