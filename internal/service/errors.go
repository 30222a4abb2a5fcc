// Package service holds the feed's business operations on top of the repositories.
package service

import (
	"errors"

	"karmafeed/internal/models"
	"karmafeed/internal/repository"
)

// storeError passes AppErrors through and reports anything else as a store failure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStoreUnavailableError(err)
}

func lookupError(err error, resource string, id uint) error {
	if repository.IsNotFound(err) {
		return models.NewNotFoundError(resource, id)
	}
	return storeError(err)
}
