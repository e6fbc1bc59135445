package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicateEntry(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !IsDuplicateEntry(dup) {
		t.Error("1062 should be a duplicate entry")
	}
	if !IsDuplicateEntry(fmt.Errorf("create: %w", dup)) {
		t.Error("wrapped 1062 should be a duplicate entry")
	}
	if IsDuplicateEntry(&mysql.MySQLError{Number: 1452}) {
		t.Error("1452 is not a duplicate entry")
	}
	if IsDuplicateEntry(errors.New("boom")) {
		t.Error("plain errors are not duplicate entries")
	}
	if IsDuplicateEntry(nil) {
		t.Error("nil is not a duplicate entry")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	for _, number := range []uint16{1451, 1452} {
		err := &mysql.MySQLError{Number: number}
		if !IsForeignKeyViolation(err) {
			t.Errorf("%d should be a foreign key violation", number)
		}
	}
	if IsForeignKeyViolation(&mysql.MySQLError{Number: 1062}) {
		t.Error("1062 is not a foreign key violation")
	}
	if IsForeignKeyViolation(nil) {
		t.Error("nil is not a foreign key violation")
	}
}
