package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	errprocess "marketplace_chat_service/pkg/err"
)

// MaxRoomIDLength longest accepted room key
const MaxRoomIDLength = 128

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// ValidateRoomID explicit room key or "<lo>-<hi>" pair key
func ValidateRoomID(roomID string) error {
	if roomID == "" || len(roomID) > MaxRoomIDLength || !roomIDPattern.MatchString(roomID) {
		return fmt.Errorf("%w: invalid room id %q", errprocess.ErrValidation, roomID)
	}
	return nil
}

// PairRoomID room key for a two-party chat, same key whichever side opens it
func PairRoomID(a, b string) string {
	if lessID(b, a) {
		a, b = b, a
	}
	return a + "-" + b
}

// ParsePairRoomID split a "<lo>-<hi>" key made of two decimal ids
func ParsePairRoomID(roomID string) (string, string, bool) {
	lo, hi, found := strings.Cut(roomID, "-")
	if !found || !isDecimal(lo) || !isDecimal(hi) {
		return "", "", false
	}
	return lo, hi, true
}

// CounterpartOf the other participant of a pair room, false when user is not part of it
func CounterpartOf(roomID, userID string) (string, bool) {
	lo, hi, ok := ParsePairRoomID(roomID)
	if !ok {
		return "", false
	}
	switch userID {
	case lo:
		return hi, true
	case hi:
		return lo, true
	}
	return "", false
}

func lessID(a, b string) bool {
	if isDecimal(a) && isDecimal(b) {
		ai, errA := strconv.ParseUint(a, 10, 64)
		bi, errB := strconv.ParseUint(b, 10, 64)
		if errA == nil && errB == nil {
			return ai < bi
		}
	}
	return a < b
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
