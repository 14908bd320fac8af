package auth

import (
	"errors"
	"testing"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// requireErrCode fails unless err carries the domain code; the kind is printed
// to make taxonomy mix-ups obvious.
func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *domain.Error
	switch {
	case err == nil:
		t.Fatalf("want %s, got success", code)
	case !errors.As(err, &de):
		t.Fatalf("want %s, got non-domain error %v", code, err)
	case de.Code != code:
		t.Fatalf("want %s, got %s/%s (%v)", code, de.Kind, de.Code, err)
	}
}

func requireNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
