package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownDatasource = errors.New("unknown datasource type")
	ErrUnknownProvider   = errors.New("unknown llm provider")
)
