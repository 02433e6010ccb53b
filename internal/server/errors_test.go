package server

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyDBError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want any
	}{
		{"nil", nil, nil},
		{"check constraint sentinel", gorm.ErrCheckConstraintViolated, &ConstraintError{}},
		{"duplicate key sentinel", gorm.ErrDuplicatedKey, &ConstraintError{}},
		{"foreign key sentinel", gorm.ErrForeignKeyViolated, &ConstraintError{}},
		{"wrapped sentinel", fmt.Errorf("exec: %w", gorm.ErrCheckConstraintViolated), &ConstraintError{}},
		{"postgres sqlstate message", errors.New(`ERROR: new row violates check constraint "chk_devstate_status" (SQLSTATE 23514)`), &ConstraintError{}},
		{"bad conn", driver.ErrBadConn, &ConnectivityError{}},
		{"deadline", context.DeadlineExceeded, &ConnectivityError{}},
		{"canceled", context.Canceled, &ConnectivityError{}},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}, &ConnectivityError{}},
		{"refused message", errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"), &ConnectivityError{}},
		{"closed sqlite", errors.New("sql: database is closed"), &ConnectivityError{}},
		{"closed pgx pool", errors.New("closed pool"), &ConnectivityError{}},
		{"unknown passthrough", errors.New("syntax error at or near SELECT"), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyDBError(tc.err)
			switch tc.want.(type) {
			case *ConstraintError:
				var ce *ConstraintError
				require.ErrorAs(t, got, &ce)
				assert.ErrorIs(t, got, tc.err)
			case *ConnectivityError:
				var ce *ConnectivityError
				require.ErrorAs(t, got, &ce)
				assert.ErrorIs(t, got, tc.err)
			default:
				// nil in, nil out; unknown errors come back untouched
				assert.Equal(t, tc.err, got)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "bad payload", (&ValidationError{Msg: "bad payload"}).Error())

	conn := &ConnectivityError{Err: errors.New("connection refused")}
	assert.Equal(t, "database unreachable: connection refused", conn.Error())
	assert.EqualError(t, errors.Unwrap(conn), "connection refused")

	cons := &ConstraintError{Err: errors.New("CHECK constraint failed")}
	assert.Equal(t, "constraint violated: CHECK constraint failed", cons.Error())
	assert.EqualError(t, errors.Unwrap(cons), "CHECK constraint failed")
}
