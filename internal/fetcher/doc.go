// Package fetcher retrieves named series through the relay and turns them
// into records or typed failures.
//
// FetchAll fans out one goroutine per endpoint and never lets one failure
// cancel or hide another: every endpoint gets its own Result slot.
package fetcher
