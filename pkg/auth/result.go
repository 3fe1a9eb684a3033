package auth

// Result is the outcome of a login or registration: either OK, or a failure
// carrying a message fit to show the user.
type Result struct {
	message string
	failed  bool
}

// OK returns a successful result.
func OK() Result {
	return Result{}
}

// Fail returns a failed result with msg. An empty msg is replaced so a
// failure never reads as success.
func Fail(msg string) Result {
	if msg == "" {
		msg = "Request failed"
	}
	return Result{message: msg, failed: true}
}

// Ok reports whether the operation succeeded.
func (r Result) Ok() bool {
	return !r.failed
}

// String returns "" on success and the failure message otherwise.
func (r Result) String() string {
	return r.message
}
