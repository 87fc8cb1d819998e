package repository

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/store"
)

func TestClassify(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, store.ErrDuplicate},
		{"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, store.ErrConflict},
		{"lock wait", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout"}, store.ErrConflict},
		{"other mysql", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, nil},
		{"plain", other, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.in)
			if tt.want == nil {
				assert.Same(t, tt.in, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
			var me *mysql.MySQLError
			assert.ErrorAs(t, got, &me)
		})
	}
	assert.NoError(t, classify(nil))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows, model.ErrDropNotFound), model.ErrDropNotFound)
	assert.ErrorIs(t, notFound(&mysql.MySQLError{Number: 1213}, model.ErrDropNotFound), store.ErrConflict)
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDuplicate(sql.ErrNoRows))
}
