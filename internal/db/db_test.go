package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"os"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"warimas-orderflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pingDriver opens connections whose Ping runs the given func. It counts
// closed connections.
type pingDriver struct {
	ping   func(ctx context.Context) error
	closes atomic.Int32
}

func (d *pingDriver) Open(string) (driver.Conn, error) { return &pingConn{d: d}, nil }

type pingConn struct{ d *pingDriver }

func (c *pingConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *pingConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }
func (c *pingConn) Ping(ctx context.Context) error      { return c.d.ping(ctx) }
func (c *pingConn) Close() error {
	c.d.closes.Add(1)
	return nil
}

var (
	healthyDriver  = &pingDriver{ping: func(context.Context) error { return nil }}
	refusingDriver = &pingDriver{ping: func(context.Context) error {
		return errors.New("connection refused")
	}}
	hangingDriver = &pingDriver{ping: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
)

func init() {
	sql.Register("pingtest_healthy", healthyDriver)
	sql.Register("pingtest_refusing", refusingDriver)
	sql.Register("pingtest_hanging", hangingDriver)
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "Full",
			cfg:  config.Config{DBHost: "db.internal", DBUser: "orderflow", DBPassword: "s3cret", DBName: "handoffs", DBPort: "5433"},
			want: "host=db.internal user=orderflow password=s3cret dbname=handoffs port=5433 sslmode=disable",
		},
		{
			name: "Empty",
			want: "host= user= password= dbname= port= sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(&tt.cfg))
		})
	}
}

func TestNewDatabase(t *testing.T) {
	cfg := &config.Config{DBHost: "localhost", DBName: "handoffs"}

	t.Run("Healthy", func(t *testing.T) {
		db, err := newDatabaseWithDriver(cfg, "pingtest_healthy")
		require.NoError(t, err)
		require.NotNil(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("PingFailureClosesPool", func(t *testing.T) {
		before := refusingDriver.closes.Load()

		db, err := newDatabaseWithDriver(cfg, "pingtest_refusing")
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping DB")
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, int32(1), refusingDriver.closes.Load()-before)
	})

	t.Run("PingIsBounded", func(t *testing.T) {
		prev := pingTimeout
		pingTimeout = 50 * time.Millisecond
		t.Cleanup(func() { pingTimeout = prev })
		before := hangingDriver.closes.Load()

		start := time.Now()
		db, err := newDatabaseWithDriver(cfg, "pingtest_hanging")
		assert.Nil(t, db)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Equal(t, int32(1), hangingDriver.closes.Load()-before)
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		db, err := newDatabaseWithDriver(cfg, "pingtest_missing")
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to DB")
	})

	t.Run("UnreachablePostgres", func(t *testing.T) {
		db, err := NewDatabase(&config.Config{DBHost: "invalid_host", DBPort: "5432"})
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping DB")
	})
}

func TestInitDB_ExitsWithoutDatabase(t *testing.T) {
	if os.Getenv("ORDERFLOW_INITDB_CHILD") == "1" {
		InitDB(&config.Config{DBHost: "invalid_host", DBPort: "5432"})
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestInitDB_ExitsWithoutDatabase")
	cmd.Env = append(os.Environ(), "ORDERFLOW_INITDB_CHILD=1")
	err := cmd.Run()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.False(t, exitErr.Success())
}
