package deletion

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidArgument = errors.New("invalid id")
	ErrNotFound        = errors.New("not found")
	ErrSelfDeletion    = errors.New("cannot delete your own account")
	ErrConstraint      = errors.New("constraint violation")
	ErrStorage         = errors.New("storage error")
)

// classify translates whatever escaped the transaction into the package's
// error kinds. Business errors pass through untouched; postgres integrity
// errors (class 23) become ErrConstraint; everything else is ErrStorage.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrSelfDeletion):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
		return fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
	}

	return fmt.Errorf("%w: %v", ErrStorage, err)
}
