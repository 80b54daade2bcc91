package api_test

import (
	"io"
	"log/slog"
	"testing"

	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/recruit/api"
	"github.com/garnizeh/recruit/internal/auth"
)

func TestMain(m *testing.M) {
	auth.Cost = bcrypt.MinCost
	api.SetLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	// verify no goroutine leaks across tests in this package
	goleak.VerifyTestMain(m)
}
