// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"streetcoverage/internal/domain/entity"

	"github.com/pkg/errors"
)

// Domain-specific errors for area persistence.
var (
	// ErrAreaNotFound is returned when an area is not found.
	ErrAreaNotFound = errors.New("area not found")
	// ErrDuplicateArea is returned when creating an area whose display
	// name already exists.
	ErrDuplicateArea = errors.New("area with this display name already exists")
)

// AreaRepository defines the interface for CoverageArea persistence.
type AreaRepository interface {
	// Upsert creates or updates an area's metadata, returning its id.
	Upsert(ctx context.Context, area *entity.CoverageArea) (string, error)

	// FindByID retrieves an area by its opaque id.
	FindByID(ctx context.Context, id string) (*entity.CoverageArea, error)

	// FindByDisplayName retrieves an area by its unique display name.
	FindByDisplayName(ctx context.Context, displayName string) (*entity.CoverageArea, error)

	// Save persists mutations to an existing area (state, aggregates,
	// pointers).
	Save(ctx context.Context, area *entity.CoverageArea) error

	// Delete removes an area and cascades to its segments, their trip
	// contributions, its route, and its progress records. Stored
	// artifacts are not removed here.
	Delete(ctx context.Context, displayName string) error
}
