package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/taskboard/pkg/storage"
)

// Storage failures other than a missing key surface as Unavailable: the
// record may well exist, the backing store just could not be reached.

func WrapStorageReadError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Unavailable, "store unavailable", fmt.Errorf("failed to read %s: %w", target, err))
}

func WrapStorageWriteError(target string, err error) error {
	return NewError(Unavailable, "store unavailable", fmt.Errorf("failed to write %s: %w", target, err))
}

func WrapStorageDeleteError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Unavailable, "store unavailable", fmt.Errorf("failed to delete %s: %w", target, err))
}
