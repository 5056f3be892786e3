package database

import (
	"context"

	"github.com/google/uuid"
)

const createUser = `
INSERT INTO users (full_name, email, index_no, hashed_password, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, full_name, email, index_no, hashed_password, role, created_at
`

type CreateUserParams struct {
	FullName       string
	Email          string
	IndexNo        string
	HashedPassword string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.FullName, arg.Email, arg.IndexNo, arg.HashedPassword, arg.Role)
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.IndexNo, &u.HashedPassword, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, full_name, email, index_no, hashed_password, role, created_at
FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.IndexNo, &u.HashedPassword, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, full_name, email, index_no, hashed_password, role, created_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.IndexNo, &u.HashedPassword, &u.Role, &u.CreatedAt)
	return u, err
}
