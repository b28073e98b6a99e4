package models

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNotOnServer   = errors.New("user not registered on server")
	ErrClanNotFound      = errors.New("clan not found")
	ErrClanTagTaken      = errors.New("clan tag already taken on this server")
	ErrUserAlreadyInClan = errors.New("user already in a clan on this server")
	ErrUserNotInClan     = errors.New("user not in a clan on this server")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidArgument   = errors.New("invalid argument")

	// ErrCorruptedClan marks an internal-consistency violation (e.g. an
	// active clan with zero members). Entities in this state reject
	// further mutation.
	ErrCorruptedClan = errors.New("clan state corrupted")
)

var clanTagRE = regexp.MustCompile(`^[A-Z0-9]{2,5}$`)

// ValidateClanTag checks that a tag is 2-5 uppercase alphanumerics
func ValidateClanTag(tag string) error {
	if !clanTagRE.MatchString(tag) {
		return ErrInvalidArgument
	}
	return nil
}

// ValidateID rejects empty or whitespace-only identifiers
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidArgument
	}
	return nil
}
