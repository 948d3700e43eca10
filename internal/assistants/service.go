package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/auth"
	"github.com/axoncore/axoncore/internal/pricing"
)

type ServiceOptions struct {
	Now func() time.Time
}

type Service struct {
	repo      Repository
	encryptor *auth.Encryptor
	now       func() time.Time
}

func NewService(repo Repository, encryptor *auth.Encryptor, opts ServiceOptions) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		encryptor: encryptor,
		now:       now,
	}
}

// CreateMany creates every persona in reqs or none of them.
func (s *Service) CreateMany(ctx context.Context, accountID uuid.UUID, reqs []CreateRequest) ([]*Assistant, error) {
	now := s.now().UTC()
	rows := make([]*Row, 0, len(reqs))
	for i := range reqs {
		req := &reqs[i]
		modelID := req.ModelID
		if modelID == "" {
			modelID = string(pricing.DefaultAssistantModel)
		}
		if !pricing.Known(modelID) {
			return nil, fmt.Errorf("%w: unknown model %q", ErrValidation, modelID)
		}

		sealed, err := s.encryptor.Seal(req.Instruction)
		if err != nil {
			return nil, fmt.Errorf("encrypting instruction: %w", err)
		}
		questions := req.SampleQuestions
		if questions == nil {
			questions = []string{}
		}
		questionsJSON, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("marshaling sample questions: %w", err)
		}

		rows = append(rows, &Row{
			ID:                   uuid.New(),
			AccountID:            accountID,
			CatalogID:            req.CatalogID,
			Name:                 req.Name,
			Title:                req.Title,
			Image:                req.Image,
			InstructionEncrypted: sealed,
			UserInstruction:      req.UserInstruction,
			SampleQuestions:      questionsJSON,
			ModelID:              modelID,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}

	if err := s.repo.CreateMany(ctx, rows); err != nil {
		return nil, err
	}

	out := make([]*Assistant, 0, len(rows))
	for _, row := range rows {
		a, err := s.fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Assistant, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return s.fromRow(row)
}

// List returns the account's assistants, newest first.
func (s *Service) List(ctx context.Context, accountID uuid.UUID, params ListParams) ([]*Assistant, int64, error) {
	offset := (params.Page - 1) * params.PageSize

	rows, err := s.repo.ListByAccount(ctx, accountID, params.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*Assistant, 0, len(rows))
	for _, row := range rows {
		a, err := s.fromRow(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, count, nil
}

func (s *Service) Update(ctx context.Context, a *Assistant, req *UpdateRequest) (*Assistant, error) {
	updated := *a
	if req.UserInstruction != nil {
		updated.UserInstruction = *req.UserInstruction
	}
	if req.ModelID != nil {
		if !pricing.Known(*req.ModelID) {
			return nil, fmt.Errorf("%w: unknown model %q", ErrValidation, *req.ModelID)
		}
		updated.ModelID = *req.ModelID
	}
	updated.UpdatedAt = s.now().UTC()

	err := s.repo.Update(ctx, &Row{
		ID:              updated.ID,
		UserInstruction: updated.UserInstruction,
		ModelID:         updated.ModelID,
		UpdatedAt:       updated.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) fromRow(row *Row) (*Assistant, error) {
	instruction, err := s.encryptor.Open(row.InstructionEncrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypting instruction of assistant %s: %w", row.ID, err)
	}

	questions := []string{}
	if len(row.SampleQuestions) > 0 {
		if err := json.Unmarshal(row.SampleQuestions, &questions); err != nil {
			return nil, fmt.Errorf("unmarshaling sample questions: %w", err)
		}
	}

	return &Assistant{
		ID:              row.ID,
		AccountID:       row.AccountID,
		CatalogID:       row.CatalogID,
		Name:            row.Name,
		Title:           row.Title,
		Image:           row.Image,
		Instruction:     instruction,
		UserInstruction: row.UserInstruction,
		SampleQuestions: questions,
		ModelID:         row.ModelID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}
