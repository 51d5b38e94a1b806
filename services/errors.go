package services

import "errors"

var (
	// ErrEmptyInput indicates that daily stats were requested for no prices.
	ErrEmptyInput = errors.New("cannot compute stats from an empty price list")
)
