package fabric

import "github.com/pkg/errors"

var (
	// ErrDuplicateLeaf indicates a leaf registered twice under one name.
	ErrDuplicateLeaf = errors.New("fabric: duplicate leaf")

	// ErrDimension indicates a leaf or relation whose configuration space differs from the builder's.
	ErrDimension = errors.New("fabric: configuration dimension mismatch")

	// ErrNoLeaves indicates an attempt to compose an empty fabric.
	ErrNoLeaves = errors.New("fabric: no leaves registered")

	// ErrSingular indicates a mass matrix that stayed singular after regularization.
	ErrSingular = errors.New("fabric: mass matrix singular after regularization")

	// ErrNonFinite indicates a solve that produced NaN or Inf.
	ErrNonFinite = errors.New("fabric: non-finite acceleration")
)
