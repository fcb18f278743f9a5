package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Avi-Nandwani/vercel-backend/internal/shared"
)

// Service implements the record operations over the repository. Uniqueness is
// pre-checked here for friendly error ordering, but the store's unique index
// remains the authoritative guard: the repository maps a late constraint
// violation to the same ErrDuplicateEmail.
type Service struct {
	repo     Repository
	cache    *Cache
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a Service. Cache may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
	}
}

type listPayload struct {
	Data  []User `json:"data"`
	Total int    `json:"total"`
}

// List returns one page of users sorted by creation time descending. Page and
// limit fall back to 1 and 10 when absent or invalid.
func (s *Service) List(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error) {
	page := req.Page
	if page <= 0 {
		page = shared.DefaultPage
	}
	limit := req.Limit
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	offset := (page - 1) * limit

	key, err := s.cache.ListKey(ctx, req.Search, page, limit)
	if err != nil {
		s.logger.Warn("list cache key", slog.Any("error", err))
		key = ""
	}

	var payload listPayload
	loader := func(ctx context.Context) (interface{}, error) {
		data, total, err := s.repo.List(ctx, req.Search, limit, offset)
		if err != nil {
			return nil, err
		}
		return listPayload{Data: data, Total: total}, nil
	}
	if key == "" {
		// Cache unreachable; serve straight from the repository.
		data, total, err := s.repo.List(ctx, req.Search, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		payload = listPayload{Data: data, Total: total}
	} else if err := s.cache.FetchJSON(ctx, key, &payload, loader); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	if payload.Data == nil {
		payload.Data = []User{}
	}
	meta := shared.NewPagination(page, limit, payload.Total)
	return &ListUsersResponse{
		Data:       payload.Data,
		Total:      meta.Total,
		Page:       meta.Page,
		Limit:      meta.PerPage,
		TotalPages: meta.TotalPages,
	}, nil
}

// Get fetches a single record by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and persists a new record.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = normalizeEmail(req.Email)
	trimOptional(&req.Phone, &req.Address, &req.City, &req.State, &req.ZipCode, &req.Country)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, validationDetail(err))
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	created, err := s.repo.Create(ctx, User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		Country:   req.Country,
	})
	if err != nil {
		return nil, err
	}

	s.bumpCache(ctx)
	return created, nil
}

// Update applies a partial update: only non-nil fields change. An email
// change re-validates uniqueness.
func (s *Service) Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	trimOptional(&req.FirstName, &req.LastName, &req.Phone, &req.Address, &req.City, &req.State, &req.ZipCode, &req.Country)
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, validationDetail(err))
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != existing.Email {
		other, err := s.repo.GetByEmail(ctx, *req.Email)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check existing user: %w", err)
		}
		if other != nil && other.ID != existing.ID {
			return nil, ErrDuplicateEmail
		}
	}

	updates := make(map[string]interface{})
	setIfPresent(updates, "first_name", req.FirstName)
	setIfPresent(updates, "last_name", req.LastName)
	setIfPresent(updates, "email", req.Email)
	setIfPresent(updates, "phone", req.Phone)
	setIfPresent(updates, "address", req.Address)
	setIfPresent(updates, "city", req.City)
	setIfPresent(updates, "state", req.State)
	setIfPresent(updates, "zip_code", req.ZipCode)
	setIfPresent(updates, "country", req.Country)

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes a record permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bumpCache(ctx)
	return nil
}

// Export returns the full matching set for CSV export, using the narrower
// export search scope. An empty result aborts before any artifact is created.
func (s *Service) Export(ctx context.Context, search string) ([]User, error) {
	result, err := s.repo.ListAll(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no users found to export", ErrNotFound)
	}
	return result, nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump users cache", slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimOptional(fields ...**string) {
	for _, f := range fields {
		if *f == nil {
			continue
		}
		trimmed := strings.TrimSpace(**f)
		*f = &trimmed
	}
}

func setIfPresent(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts[i] = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			parts[i] = fmt.Sprintf("%s must be a valid email address", fe.Field())
		default:
			parts[i] = fmt.Sprintf("%s is invalid", fe.Field())
		}
	}
	return strings.Join(parts, "; ")
}
