package config

import "errors"

var (
	// ErrInvalidPageBudget is returned when the page budget is not greater than 0
	ErrInvalidPageBudget = errors.New("page_budget must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidDelay is returned when the request delay is negative
	ErrInvalidDelay = errors.New("request_delay cannot be negative")
	// ErrInvalidBodyLimit is returned when max_body_bytes is not greater than 0
	ErrInvalidBodyLimit = errors.New("max_body_bytes must be greater than 0")
	// ErrEmptyOutputDir is returned when output directory is empty
	ErrEmptyOutputDir = errors.New("output_dir cannot be empty")
	// ErrInvalidHeader is returned for headers not in "Name: Value" form
	ErrInvalidHeader = errors.New(`headers must be in "Name: Value" format`)
	// ErrUnknownFormat is returned for report formats other than markdown, html and json
	ErrUnknownFormat = errors.New("format must be one of markdown, html, json")
)
