package etl

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestLoaderUpsertAthletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO athletes").
		WithArgs(int64(9), "Dana", "Ward", nil, nil, nil, nil, nil, "1998-03-14").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	loader := NewLoader(db, nil)
	err = loader.UpsertAthletes(context.Background(), []AthleteRecord{{
		AthleteID:   9,
		FirstName:   "Dana",
		LastName:    "Ward",
		DateOfBirth: "1998-03-14",
	}})
	if err != nil {
		t.Fatalf("UpsertAthletes() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoaderRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO owners").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	loader := NewLoader(db, nil)
	err = loader.UpsertOwners(context.Background(), []OwnerRecord{{OwnerID: 1, Name: "Team A"}})
	if err == nil {
		t.Fatal("UpsertOwners() swallowed the exec error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoaderSkipsEmptyBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	loader := NewLoader(db, nil)
	if err := loader.UpsertEvents(context.Background(), nil); err != nil {
		t.Fatalf("UpsertEvents(nil) error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("empty batch touched the database: %v", err)
	}
}
