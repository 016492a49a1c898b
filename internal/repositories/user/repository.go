package user

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Repository reads user master data, owned by the identity system
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new user repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "full_name", "email", "is_active", "created_at")
	sb.From("users")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user")
	}

	return &user, nil
}

// GetNames resolves display names for a set of user IDs. Missing IDs are
// simply absent from the result.
func (r *Repository) GetNames(ctx context.Context, ids []string) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetNames")
	defer span.End()

	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "full_name")
	sb.From("users")
	sb.Where(sb.In("id", sqlbuilder.List(ids)))

	query, args := sb.Build()
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve user names")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve user names")
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			ID       string `db:"id"`
			FullName string `db:"full_name"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve user names")
		}
		names[row.ID] = row.FullName
	}

	return names, nil
}
