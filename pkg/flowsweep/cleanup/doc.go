// Package cleanup orchestrates the per-org pipeline: authenticate, classify,
// resolve deletable flow versions, bulk-delete them, and reconcile the
// outcome into one RunResult per org. One org's failure never aborts the
// batch.
package cleanup
