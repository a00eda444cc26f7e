package distribution

import (
	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cloudfront"
)

type errAliasTaken struct {
	domain string
}

func (e errAliasTaken) Error() string {
	return "another distribution already claims the hostname " + e.domain
}
func (errAliasTaken) AliasTaken() bool { return true }

// IsAliasTaken returns true when a distribution (usually from an earlier run
// of the setup flow) already claims one of the requested hostnames.
func IsAliasTaken(err error) bool {
	var e interface{ AliasTaken() bool }

	return errors.As(err, &e) && e.AliasTaken()
}

type errUpdateConflict struct{}

func (errUpdateConflict) Error() string {
	return "distribution was modified concurrently, refetch and retry"
}
func (errUpdateConflict) Conflict() bool { return true }

// IsUpdateConflict returns true when a distribution update was rejected
// because the caller held a stale version tag.
func IsUpdateConflict(err error) bool {
	var e interface{ Conflict() bool }

	return errors.As(err, &e) && e.Conflict()
}

func isAWSError(err error, code string) bool {
	var awsErr awserr.Error

	return errors.As(err, &awsErr) && awsErr.Code() == code
}

func isNoSuchDistribution(err error) bool {
	return isAWSError(err, cloudfront.ErrCodeNoSuchDistribution)
}

func isCNAMEAlreadyExists(err error) bool {
	return isAWSError(err, cloudfront.ErrCodeCNAMEAlreadyExists)
}
