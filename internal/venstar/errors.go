package venstar

import "errors"

// Domain-specific errors for thermostat operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotLoggedIn is returned when query or control methods are called
	// before a successful Login.
	ErrNotLoggedIn = errors.New("venstar: not logged in")

	// ErrUnsupportedAPI is returned when the device reports a firmware API
	// version below the minimum this client speaks.
	ErrUnsupportedAPI = errors.New("venstar: unsupported api version")

	// ErrRequestFailed is returned when an HTTP request to the device fails
	// or returns a non-200 status.
	ErrRequestFailed = errors.New("venstar: request failed")

	// ErrCommandRejected is returned when the device answers a control post
	// with an error response.
	ErrCommandRejected = errors.New("venstar: command rejected")

	// ErrSetpointDelta is returned when AUTO-mode setpoints violate the
	// device's minimum separation (cooltemp - heattemp >= setpointdelta).
	ErrSetpointDelta = errors.New("venstar: setpoints closer than setpointdelta")

	// ErrInvalidMode is returned for mode values outside 0-3.
	ErrInvalidMode = errors.New("venstar: invalid mode")

	// ErrInvalidFan is returned for fan values other than 0 or 1.
	ErrInvalidFan = errors.New("venstar: invalid fan setting")

	// ErrNoHumidifier is returned when a humidity setpoint is requested on a
	// device without an active humidifier.
	ErrNoHumidifier = errors.New("venstar: device has no humidifier")
)
