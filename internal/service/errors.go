package service

import (
	"fmt"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/repo"
)

var (
	ErrValidation = errors.New("validation")      // 400
	ErrNotFound   = errors.New("not found")       // 404
	ErrForbidden  = errors.New("forbidden")       // 403
	ErrEmptyCart  = errors.New("cart is empty")   // 409
	ErrConflict   = errors.New("conflict")        // 409
	ErrStorage    = errors.New("storage failure") // 503, retryable
)

// ProductNotFoundError is a NotFound for a product id the catalog does not know.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a backing-store failure. Callers may retry the operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func validationf(format string, args ...any) error {
	return errors.Wrap(ErrValidation, fmt.Sprintf(format, args...))
}

var errGuestWrite = errors.Wrap(ErrForbidden, "guest identity cannot write to the server cart")

// translate maps repository errors onto the service taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var missing *repo.MissingProductError
	switch {
	case errors.As(err, &missing):
		return &ProductNotFoundError{ProductID: missing.ProductID}
	case errors.Is(err, repo.ErrEmptyCart):
		return ErrEmptyCart
	case errors.Is(err, repo.ErrStatusChanged):
		return errors.Wrap(ErrConflict, op)
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, cart.ErrEntryNotFound):
		return errors.Wrap(ErrNotFound, op)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrEmptyCart), errors.Is(err, ErrConflict), errors.Is(err, ErrStorage):
		return err
	default:
		return &StorageError{Op: op, Err: err}
	}
}
