package certificate

import (
	"fmt"

	"emperror.dev/errors"
)

type errValidationNotReady struct{}

func (errValidationNotReady) Error() string {
	return "certificate validation records are not yet available"
}
func (errValidationNotReady) NotYetAvailable() bool { return true }

// IsNotYetAvailable returns true when the certificate authority accepted the
// request but has not computed the validation records yet. The condition is
// transient and safe to retry.
func IsNotYetAvailable(err error) bool {
	var e interface{ NotYetAvailable() bool }

	return errors.As(err, &e) && e.NotYetAvailable()
}

type errCertificateFailed struct {
	arn string
}

func (e errCertificateFailed) Error() string {
	return fmt.Sprintf("certificate %s failed validation", e.arn)
}
func (errCertificateFailed) Failed() bool { return true }

// IsCertificateFailed returns true when the certificate reached a terminal
// failed status. The only way out is requesting a new certificate.
func IsCertificateFailed(err error) bool {
	var e interface{ Failed() bool }

	return errors.As(err, &e) && e.Failed()
}

type errIssuanceTimeout struct {
	attempts int
}

func (e errIssuanceTimeout) Error() string {
	return fmt.Sprintf("certificate was not issued after %d poll attempts", e.attempts)
}
func (errIssuanceTimeout) Timeout() bool { return true }

// IsIssuanceTimeout returns true when polling for issuance gave up.
func IsIssuanceTimeout(err error) bool {
	var e interface{ Timeout() bool }

	return errors.As(err, &e) && e.Timeout()
}
