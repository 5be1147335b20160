package services

import (
	"errors"

	"econdash/internal/view"
)

var (
	// ErrUnknownMetric is returned for metric names missing from the catalog
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrUnknownView is returned for view names without a definition
	ErrUnknownView = view.ErrUnknownView
)
