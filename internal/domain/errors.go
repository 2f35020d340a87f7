package domain

// ErrorKind classifies an exchange failure for retry and display decisions.
type ErrorKind string

const (
	// KindNone means no error.
	KindNone ErrorKind = ""

	// KindTransient covers network timeouts and 5xx server errors.
	// Retried with bounded attempts at the client layer.
	KindTransient ErrorKind = "TRANSIENT"

	// KindAuth covers invalid-signature and credential rejections. Never retried.
	KindAuth ErrorKind = "AUTH"

	// KindStaleClock is the specific auth failure caused by a timestamp aged
	// past the signing window. Surfaced distinctly so the operator can tell a
	// bad window/clock from a bad secret.
	KindStaleClock ErrorKind = "STALE_CLOCK"

	// KindBusiness covers venue rejections (insufficient balance, bad symbol).
	// Never retried; non-fatal to the cycle.
	KindBusiness ErrorKind = "BUSINESS"
)

// Retryable reports whether the client layer may retry this failure.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient
}
