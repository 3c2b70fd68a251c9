package store

import "context"

const createUser = `
INSERT INTO users (id, first_name, last_name, nickname)
VALUES (?, ?, ?, ?)
`

type CreateUserParams struct {
	ID        string
	FirstName string
	LastName  string
	Nickname  string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.FirstName, arg.LastName, arg.Nickname)
	return err
}

const getUserByID = `
SELECT id, first_name, last_name, nickname, created_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Nickname, &u.CreatedAt)
	return u, err
}
