// Package common defines sentinel errors shared by the issuer, the policy
// backends and the sample application. Callers should use errors.Is to
// match these values; most are returned wrapped with additional context.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Credential errors.
	ErrInvalidCredential = errors.New("invalid credential")

	// Resource addressing errors.
	ErrInvalidResourceReference = errors.New("invalid resource reference")

	// Constraint and policy validation errors.
	ErrInvalidPolicyWindow    = errors.New("invalid policy window")
	ErrTooManyPolicies        = errors.New("too many stored policies")
	ErrInvalidPolicyID        = errors.New("invalid policy id")
	ErrPolicyNotFound         = errors.New("policy not found")
	ErrAmbiguousConstraint    = errors.New("ambiguous constraint")
	ErrExpiredWindowRequested = errors.New("expiry is not in the future")
	ErrNoPermissions          = errors.New("no permissions requested")
	ErrInvalidPermissions     = errors.New("invalid permissions")

	// Configuration errors.
	ErrInvalidConnectionString = errors.New("invalid connection string")
)
