package migrate_test

import (
	"testing"

	"github.com/oaklinehq/oakline-backend/pkg/migrate"
)

func TestValidateDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations directory failed validation: %v", err)
	}
}
