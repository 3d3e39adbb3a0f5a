package models

import (
	"database/sql"

	"markin/internal/db"

	"github.com/google/uuid"
)

func GetUserByEmail(email string) (*User, error) {
	user := &User{}
	err := db.DB.QueryRow(`
		SELECT id, email, password_hash, role, created_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func CreateUser(email, passwordHash, role string) (*User, error) {
	userID := uuid.New()
	_, err := db.DB.Exec(`
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
	`, userID, email, passwordHash, role)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}
