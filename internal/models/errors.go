package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter marks caller errors: bad dates or grid size
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDataSource marks store failures; details are logged, never returned to clients
	ErrDataSource = errors.New("data source failure")
	// ErrUnknownDataset is returned for a dataset name that is not configured
	ErrUnknownDataset = errors.New("unknown dataset")
)

// ErrMissingDateRange is the InvalidParameter raised when start or end is absent
var ErrMissingDateRange = fmt.Errorf("%w: start and end are required", ErrInvalidParameter)
