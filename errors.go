package foxglove

import "errors"

// Sentinel errors covering the error taxonomy used throughout this
// module. Component-specific errors wrap these with
// fmt.Errorf("...: %w", err) so callers can test with errors.Is while
// still getting a descriptive message.
var (
	// ErrTopicAlreadyInUse is returned by Context.RegisterChannel when a
	// live channel already exists for the requested topic.
	ErrTopicAlreadyInUse = errors.New("foxglove: topic already in use")

	// ErrConfiguration covers invalid TLS material, unsupported
	// capability combinations, and other setup-time mistakes.
	ErrConfiguration = errors.New("foxglove: configuration error")

	// ErrProtocol covers unparseable frames, unknown ops, and
	// capability-gated operations attempted without advertisement.
	ErrProtocol = errors.New("foxglove: protocol error")

	// ErrTransport covers socket and TLS failures and write backpressure
	// overflow.
	ErrTransport = errors.New("foxglove: transport error")

	// ErrHandler covers a user service/asset handler returning an error.
	ErrHandler = errors.New("foxglove: handler error")

	// ErrEncoding covers message encode failures on the publish path.
	ErrEncoding = errors.New("foxglove: encoding error")

	// ErrRange covers numeric conversions out of bounds, notably time
	// conversions near the int64/int32 boundary.
	ErrRange = errors.New("foxglove: value out of range")

	// ErrUTF8 covers invalid UTF-8 in an incoming string field.
	ErrUTF8 = errors.New("foxglove: invalid utf-8")

	// ErrSchedulerStopped is returned when a live server is started after
	// the shared runtime has been shut down.
	ErrSchedulerStopped = errors.New("foxglove: runtime already stopped")
)
