package domain

import "errors"

// Error kinds. These are sentinels, not a type hierarchy — callers match
// them with errors.Is after fmt.Errorf("...: %w", ErrX) wrapping, the same
// convention the rest of this codebase uses for namespacing errors.
var (
	// ErrDataStreamEnd is returned by a DataProvider to signal a clean
	// end of stream. The engine treats it as the normal way a historical
	// run finishes, not a failure.
	ErrDataStreamEnd = errors.New("domain: data stream ended")

	// ErrDataStreamGap marks a detected gap (e.g. a dropped WebSocket
	// message) that the caller should log and continue past.
	ErrDataStreamGap = errors.New("domain: data stream gap")

	// ErrVenueRejected means the venue refused an order (e.g. insufficient
	// margin). No fill is produced; the bot keeps running.
	ErrVenueRejected = errors.New("domain: venue rejected order")

	// ErrVenueUnavailable marks a transient venue failure the adapter
	// layer should retry with backoff.
	ErrVenueUnavailable = errors.New("domain: venue unavailable")

	// ErrAuthFailure is fatal for a bot: bad signature or unknown wallet.
	ErrAuthFailure = errors.New("domain: authentication failure")

	// ErrConfigInvalid rejects a bot spawn before it ever reaches Running.
	ErrConfigInvalid = errors.New("domain: invalid bot configuration")

	// ErrPersistenceFailure marks a failed store write. Whether it is
	// fatal depends on the call site: a pre-spawn config write failing
	// aborts spawn_bot, a runtime-state write failing is only logged.
	ErrPersistenceFailure = errors.New("domain: persistence failure")

	// ErrInternalInvariant marks a violated invariant (e.g. a non-finite
	// position quantity). The bot aborts into the Error state.
	ErrInternalInvariant = errors.New("domain: internal invariant violation")
)
