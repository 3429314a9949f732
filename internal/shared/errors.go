package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Catalog errors are fatal to the whole run
	ErrCatalog          = fmt.Errorf("catalog request failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Ledger errors are fatal to the playlist being synced
	ErrLedgerCorrupt = fmt.Errorf("ledger is corrupt")
	ErrLedgerWrite   = fmt.Errorf("ledger write failed")

	// Track errors are logged and skipped
	ErrNoMatch = fmt.Errorf("no media match found")
	ErrFetch   = fmt.Errorf("media fetch failed")

	// Service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSearch             = fmt.Errorf("media search failed")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
