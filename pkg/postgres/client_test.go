package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachable() config.PostgresConfig {
	return config.PostgresConfig{
		Host:         "127.0.0.1",
		Port:         1,
		Database:     "rarematch",
		User:         "rarematch",
		SSLMode:      "disable",
		MaxOpenConns: 2,
		MaxIdleConns: 5,
	}
}

func TestNewUnreachableIsBoundaryError(t *testing.T) {
	_, err := New(unreachable())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBoundaryUnavailable)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestInTxBeginFailureIsBoundaryError(t *testing.T) {
	db, err := sql.Open("postgres", unreachable().DSN())
	require.NoError(t, err)
	c := &Client{DB: db}
	defer c.Close()

	called := false
	err = c.InTx(context.Background(), func(*sql.Tx) error {
		called = true
		return errors.New("unreachable")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBoundaryUnavailable)
	assert.False(t, called)
}
