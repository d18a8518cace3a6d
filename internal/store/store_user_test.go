package store

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	query := regexp.QuoteMeta(`INSERT INTO users (email, password_hash) VALUES ($1,$2)`)
	mock.ExpectExec(query).
		WithArgs("sam@example.com", "bcrypt-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.CreateUser(context.Background(), "sam@example.com", "bcrypt-hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	query := regexp.QuoteMeta(`SELECT id, password_hash FROM users WHERE email=$1`)
	mock.ExpectQuery(query).
		WithArgs("sam@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow("user-1", "bcrypt-hash"))

	id, hash, err := st.GetUserByEmail(context.Background(), "sam@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if id != "user-1" || hash != "bcrypt-hash" {
		t.Fatalf("unexpected row: %s %s", id, hash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
