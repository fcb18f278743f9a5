package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Search scopes. The list view intentionally searches a wider field set than
// the export path; the asymmetry matches the existing client behaviour and is
// kept until product says otherwise.
var (
	listSearchColumns   = []string{"first_name", "last_name", "email", "phone", "city", "country"}
	exportSearchColumns = []string{"first_name", "last_name", "email"}
)

// Repository provides persistence for user records.
type Repository interface {
	List(ctx context.Context, search string, limit, offset int) ([]User, int, error)
	ListAll(ctx context.Context, search string) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u User) (*User, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const userColumns = `id, first_name, last_name, email, phone, address, city, state, zip_code, country, created_at, updated_at`

// searchCondition builds an ILIKE predicate over the given columns. The term
// is passed as a bind parameter with pattern metacharacters escaped, so user
// input is always matched literally.
func searchCondition(columns []string, argPos int) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, col, argPos)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func searchPattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}

func (r *repository) List(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	whereClause := ""
	var args []interface{}
	if search != "" {
		whereClause = "WHERE " + searchCondition(listSearchColumns, 1)
		args = append(args, searchPattern(search))
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, userColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	result, err := scanUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *repository) ListAll(ctx context.Context, search string) ([]User, error) {
	whereClause := ""
	var args []interface{}
	if search != "" {
		whereClause = "WHERE " + searchCondition(exportSearchColumns, 1)
		args = append(args, searchPattern(search))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY created_at DESC
	`, userColumns, whereClause)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list all users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (r *repository) Get(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE lower(email) = lower($1)", userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *repository) Create(ctx context.Context, u User) (*User, error) {
	query := fmt.Sprintf(`
		INSERT INTO users (id, first_name, last_name, email, phone, address, city, state, zip_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s
	`, userColumns)

	row := r.db.QueryRow(ctx, query,
		uuid.New(),
		u.FirstName,
		u.LastName,
		u.Email,
		textValue(u.Phone),
		textValue(u.Address),
		textValue(u.City),
		textValue(u.State),
		textValue(u.ZipCode),
		textValue(u.Country),
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	query := "UPDATE users SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	// Deterministic column order keeps query plans and tests stable.
	for _, col := range []string{"first_name", "last_name", "email", "phone", "address", "city", "state", "zip_code", "country"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, uid)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", uid)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	result := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var id uuid.UUID
	var phone, address, city, state, zipCode, country pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&id, &u.FirstName, &u.LastName, &u.Email,
		&phone, &address, &city, &state, &zipCode, &country,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.ID = id.String()
	if phone.Valid {
		u.Phone = &phone.String
	}
	if address.Valid {
		u.Address = &address.String
	}
	if city.Valid {
		u.City = &city.String
	}
	if state.Valid {
		u.State = &state.String
	}
	if zipCode.Valid {
		u.ZipCode = &zipCode.String
	}
	if country.Valid {
		u.Country = &country.String
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		u.UpdatedAt = updatedAt.Time
	}
	return &u, nil
}

func textValue(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// isUniqueViolation reports whether err is the store's unique constraint
// violation (SQLSTATE 23505). The schema-level index on lower(email) is the
// authoritative uniqueness guard; the service-level pre-check only exists for
// friendlier error ordering.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
