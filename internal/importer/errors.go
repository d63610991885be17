package importer

import "errors"

// Input errors.
var (
	ErrMalformedCSV = errors.New("malformed csv")
	ErrMissingField = errors.New("required field missing")
)
