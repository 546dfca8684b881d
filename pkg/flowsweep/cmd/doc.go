// Package cmd implements the cobra command tree for the flowsweep CLI,
// including the cleanup run, dry-run listing, org configuration management,
// and shell completion.
package cmd
