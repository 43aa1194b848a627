package ipam

import (
	"errors"
	"fmt"

	"ipnetlab/internal/domain"
)

// ErrPoolExhausted is returned when no free block of the pool can hold a
// domain at its required prefix length.
type ErrPoolExhausted struct {
	family    domain.Family
	domain    int
	prefixLen int
}

// Error returns a formatted error string explaining which domain could not be
// served
func (e ErrPoolExhausted) Error() string {
	return fmt.Sprintf("%s pool exhausted: no free block for a /%d in broadcast domain %d", e.family, e.prefixLen, e.domain)
}

// IsErrPoolExhausted returns true if the error is, or wraps, ErrPoolExhausted
func IsErrPoolExhausted(err error) bool {
	var e ErrPoolExhausted
	return errors.As(err, &e)
}

// ErrSubnetTooSmall is returned when a domain needs a wider subnet than the
// maximum prefix length allows.
type ErrSubnetTooSmall struct {
	family       domain.Family
	domain       int
	required     int
	prefixLen    int
	maxPrefixLen int
}

// Error returns a formatted error string with the offending sizes
func (e ErrSubnetTooSmall) Error() string {
	return fmt.Sprintf("broadcast domain %d needs %d %s addresses (/%d), more than a /%d allows",
		e.domain, e.required, e.family, e.prefixLen, e.maxPrefixLen)
}

// IsErrSubnetTooSmall returns true if the error is, or wraps, ErrSubnetTooSmall
func IsErrSubnetTooSmall(err error) bool {
	var e ErrSubnetTooSmall
	return errors.As(err, &e)
}

// ErrAddressExhausted is returned when issuing addresses runs past the end of
// a domain's subnet.
type ErrAddressExhausted struct {
	family domain.Family
	domain int
	subnet string
}

// Error returns a formatted error string naming the exhausted subnet
func (e ErrAddressExhausted) Error() string {
	return fmt.Sprintf("no %s address left in %s for broadcast domain %d", e.family, e.subnet, e.domain)
}

// IsErrAddressExhausted returns true if the error is, or wraps,
// ErrAddressExhausted
func IsErrAddressExhausted(err error) bool {
	var e ErrAddressExhausted
	return errors.As(err, &e)
}

// ErrOverlapConflict reports a candidate block colliding with a pinned subnet.
// The pool recovers from it by itself; it is only logged.
type ErrOverlapConflict struct {
	candidate string
	fixed     string
}

// Error returns a formatted error string naming both blocks
func (e ErrOverlapConflict) Error() string {
	return fmt.Sprintf("candidate block %s overlaps pinned subnet %s", e.candidate, e.fixed)
}

// IsErrOverlapConflict returns true if the error is, or wraps,
// ErrOverlapConflict
func IsErrOverlapConflict(err error) bool {
	var e ErrOverlapConflict
	return errors.As(err, &e)
}

// ErrNoSubnet is returned when addresses are requested for a domain that was
// never given a subnet of the family.
type ErrNoSubnet struct {
	family domain.Family
	domain int
}

// Error returns a formatted error string naming the domain
func (e ErrNoSubnet) Error() string {
	return fmt.Sprintf("broadcast domain %d has no %s subnet", e.domain, e.family)
}

// IsErrNoSubnet returns true if the error is, or wraps, ErrNoSubnet
func IsErrNoSubnet(err error) bool {
	var e ErrNoSubnet
	return errors.As(err, &e)
}

// IsAllocationError reports whether err is one of the errors an allocation
// run fails with, as opposed to bad input or infrastructure failures.
func IsAllocationError(err error) bool {
	return IsErrPoolExhausted(err) || IsErrSubnetTooSmall(err) ||
		IsErrAddressExhausted(err) || IsErrNoSubnet(err)
}
