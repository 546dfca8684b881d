package salesforce

import "fmt"

// APIError is a non-2xx response from any Salesforce endpoint.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("request failed (%d %s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// QueryError is a failed SOQL query: malformed query, missing permission, or
// any transport failure. It is fatal for the org run that issued it.
type QueryError struct {
	SOQL string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// BatchError is a composite call that was rejected as a whole. It marks every
// candidate of its batch failed but does not abort the remaining batches.
type BatchError struct {
	Batch int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("delete batch %d failed: %v", e.Batch, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
