package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// DirectoryRepository is the relationship gate: it answers which
// tenant-landlord pairings are valid and who a user's counterparts are. It
// reads the platform's directory tables and never writes them.
type DirectoryRepository interface {
	UserRole(ctx context.Context, userID int64) (string, error)
	IsLinked(ctx context.Context, tenantID, landlordID int64, propertyID *int64) (bool, error)
	ListCounterparts(ctx context.Context, userID int64, role string) ([]models.Partner, error)
}

// DirectoryRepo is a sqlx implementation of DirectoryRepository.
type DirectoryRepo struct {
	db *sqlx.DB
}

// NewDirectoryRepo constructs a DirectoryRepo.
func NewDirectoryRepo(db *sqlx.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

// UserRole resolves a user's role, or ErrUserNotFound.
func (r *DirectoryRepo) UserRole(ctx context.Context, userID int64) (string, error) {
	var role string
	err := r.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return role, err
}

// IsLinked reports whether some property links the landlord as owner and the
// tenant as occupant, optionally scoped to one property.
func (r *DirectoryRepo) IsLinked(ctx context.Context, tenantID, landlordID int64, propertyID *int64) (bool, error) {
	var linked bool
	err := r.db.GetContext(ctx, &linked, `SELECT EXISTS(
        SELECT 1 FROM properties p
        JOIN property_tenants pt ON pt.property_id = p.id
        WHERE p.landlord_id=$2 AND pt.tenant_id=$1
          AND ($3::bigint IS NULL OR p.id=$3))`, tenantID, landlordID, propertyID)
	return linked, err
}

type counterpartRow struct {
	UserID        int64  `db:"user_id"`
	Name          string `db:"name"`
	Email         string `db:"email"`
	Role          string `db:"role"`
	PropertyID    int64  `db:"property_id"`
	PropertyTitle string `db:"property_title"`
}

// ListCounterparts returns the user's valid counterparts grouped with the
// properties relating them: a landlord sees every distinct tenant across
// owned properties, a tenant sees the landlords of properties they occupy.
func (r *DirectoryRepo) ListCounterparts(ctx context.Context, userID int64, role string) ([]models.Partner, error) {
	var (
		rows []counterpartRow
		err  error
	)
	if role == models.RoleLandlord {
		err = r.db.SelectContext(ctx, &rows, `SELECT u.id AS user_id, u.name, u.email, u.role,
            p.id AS property_id, p.title AS property_title
            FROM properties p
            JOIN property_tenants pt ON pt.property_id = p.id
            JOIN users u ON u.id = pt.tenant_id
            WHERE p.landlord_id=$1
            ORDER BY u.name, u.id, p.id`, userID)
	} else {
		err = r.db.SelectContext(ctx, &rows, `SELECT u.id AS user_id, u.name, u.email, u.role,
            p.id AS property_id, p.title AS property_title
            FROM properties p
            JOIN property_tenants pt ON pt.property_id = p.id
            JOIN users u ON u.id = p.landlord_id
            WHERE pt.tenant_id=$1
            ORDER BY u.name, u.id, p.id`, userID)
	}
	if err != nil {
		return nil, err
	}

	byUser := map[int64]int{}
	partners := make([]models.Partner, 0, len(rows))
	for _, row := range rows {
		idx, seen := byUser[row.UserID]
		if !seen {
			idx = len(partners)
			byUser[row.UserID] = idx
			partners = append(partners, models.Partner{
				Kind: row.Role,
				User: models.PartnerUser{ID: row.UserID, Name: row.Name, Email: row.Email, Role: row.Role},
			})
		}
		partners[idx].Properties = append(partners[idx].Properties, models.PartnerProperty{
			ID:    row.PropertyID,
			Title: row.PropertyTitle,
		})
	}
	return partners, nil
}
