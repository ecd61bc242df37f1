package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

type MySQLRepo struct {
	DB *sql.DB
}

func NewMySQLRepo(db *sql.DB) *MySQLRepo {
	return &MySQLRepo{DB: db}
}

func (r *MySQLRepo) Create(ctx context.Context, user *User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, name, surname, email, password, role, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Surname, user.Email, user.Password, user.Role, user.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *MySQLRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, surname, email, password, role, created_at FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.Password, &u.Role, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}
