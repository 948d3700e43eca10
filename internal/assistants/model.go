package assistants

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("assistant not found")
	ErrValidation = errors.New("validation error")
)

// Assistant is a persona owned by one account.
type Assistant struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"account_id"`
	CatalogID       int       `json:"catalog_id"`
	Name            string    `json:"name"`
	Title           string    `json:"title"`
	Image           string    `json:"image"`
	Instruction     string    `json:"instruction"`
	UserInstruction string    `json:"user_instruction"`
	SampleQuestions []string  `json:"sample_questions"`
	ModelID         string    `json:"model_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SystemPrompt joins the persona instruction with the owner's additions.
func (a *Assistant) SystemPrompt() string {
	switch {
	case a.UserInstruction == "":
		return a.Instruction
	case a.Instruction == "":
		return a.UserInstruction
	}
	return a.Instruction + "\n\n" + a.UserInstruction
}

// Row is the database representation. The instruction is sealed and the
// sample questions are raw JSONB.
type Row struct {
	ID                   uuid.UUID
	AccountID            uuid.UUID
	CatalogID            int
	Name                 string
	Title                string
	Image                string
	InstructionEncrypted []byte
	UserInstruction      string
	SampleQuestions      []byte
	ModelID              string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type CreateRequest struct {
	CatalogID       int      `json:"catalog_id" validate:"gte=0"`
	Name            string   `json:"name" validate:"required,min=1,max=255"`
	Title           string   `json:"title" validate:"max=255"`
	Image           string   `json:"image" validate:"max=2048"`
	Instruction     string   `json:"instruction" validate:"max=20000"`
	UserInstruction string   `json:"user_instruction" validate:"max=20000"`
	SampleQuestions []string `json:"sample_questions" validate:"max=20,dive,max=500"`
	ModelID         string   `json:"model_id" validate:"omitempty,max=255"`
}

type BulkCreateRequest struct {
	Assistants []CreateRequest `json:"assistants" validate:"required,min=1,max=50,dive"`
}

type UpdateRequest struct {
	UserInstruction *string `json:"user_instruction" validate:"omitempty,max=20000"`
	ModelID         *string `json:"model_id" validate:"omitempty,min=1,max=255"`
}

type ListParams struct {
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
