// Package domain holds the TTL access-code model: short-lived, single-use
// codes issued per employee, at most one valid at a time.
package domain

import "time"

// AccessCode is one issued code (stored in access_codes table). A code is
// redeemable while it is unused and ExpiresAt is in the future.
type AccessCode struct {
	ID         string
	EmployeeID string
	Code       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	IsUsed     bool
}

// Valid reports whether the code is redeemable at the given instant.
func (c *AccessCode) Valid(now time.Time) bool {
	return !c.IsUsed && c.ExpiresAt.After(now)
}

// Employee is the ledger's view of an enrolled identity.
type Employee struct {
	ID       string
	Phone    string
	FullName string
}
