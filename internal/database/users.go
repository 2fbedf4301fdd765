package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, full_name, email, hashed_password, role, is_active, is_verified, reward_points, created_at, updated_at, archived_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role,
		&u.IsActive, &u.IsVerified, &u.RewardPoints, &u.CreatedAt, &u.UpdatedAt, &u.ArchivedAt)
	return u, err
}

type CreateUserParams struct {
	FullName       string
	Email          string
	HashedPassword string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (full_name, email, hashed_password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		arg.FullName, arg.Email, arg.HashedPassword, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 AND archived_at IS NULL`, email)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id = $1 AND archived_at IS NULL`, id)
	return scanUser(row)
}

type UpdateUserProfileParams struct {
	ID       uuid.UUID
	FullName string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET full_name = $2, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING `+userColumns,
		arg.ID, arg.FullName)
	return scanUser(row)
}

type UpdateUserRoleParams struct {
	ID   uuid.UUID
	Role string
}

func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET role = $2, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING `+userColumns,
		arg.ID, arg.Role)
	return scanUser(row)
}

type SetUserActiveParams struct {
	ID       uuid.UUID
	IsActive bool
}

func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET is_active = $2, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING `+userColumns,
		arg.ID, arg.IsActive)
	return scanUser(row)
}

type AddRewardPointsParams struct {
	ID     uuid.UUID
	Points int32
}

func (q *Queries) AddRewardPoints(ctx context.Context, arg AddRewardPointsParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET reward_points = reward_points + $2, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING `+userColumns,
		arg.ID, arg.Points)
	return scanUser(row)
}

type ListUsersParams struct {
	Role   pgtype.Text
	Search pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE archived_at IS NULL
		  AND ($1::text IS NULL OR role = $1)
		  AND ($2::text IS NULL OR full_name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		arg.Role, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListUserIDs returns every active user ID; used for admin broadcasts.
func (q *Queries) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id FROM users WHERE archived_at IS NULL AND is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ArchiveUser soft-deletes a user. Admin accounts are never archived;
// the guard lives in the handler, not here.
func (q *Queries) ArchiveUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var archived uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE users SET archived_at = now(), is_active = false, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING id`, id).Scan(&archived)
	return archived, err
}

type FavoriteParams struct {
	UserID       uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) AddFavorite(ctx context.Context, arg FavoriteParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO favorites (user_id, restaurant_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		arg.UserID, arg.RestaurantID)
	return err
}

func (q *Queries) RemoveFavorite(ctx context.Context, arg FavoriteParams) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND restaurant_id = $2`,
		arg.UserID, arg.RestaurantID)
	return err
}

func (q *Queries) ListFavoriteRestaurants(ctx context.Context, userID uuid.UUID) ([]Restaurant, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+restaurantColumns("r")+`
		FROM restaurants r
		JOIN favorites f ON f.restaurant_id = r.id
		WHERE f.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restaurants []Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, rows.Err()
}
