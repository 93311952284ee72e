package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// hashFields joins a set of "key=value" fragments in sorted key order and
// hashes the result, so field order in the source struct never affects
// the digest (spec.md §3 Invariants: hashes are order-independent per
// field).
func hashFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte(';')
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// Hash computes the requirements_hash gate value. Absent fields
// contribute nothing to the digest; a nil pointer field (participants,
// duration) going to a non-nil one changes the hash even when it points
// at a zero value, while an empty string field counts as absent.
func (r Requirements) Hash() string {
	fields := map[string]string{}
	if r.Participants != nil {
		fields["participants"] = strconv.Itoa(*r.Participants)
	}
	if r.Duration != nil {
		fields["duration.start"] = r.Duration.Start
		fields["duration.end"] = r.Duration.End
	}
	if r.SeatingLayout != "" {
		fields["seating_layout"] = r.SeatingLayout
	}
	if r.SpecialRequirements != "" {
		fields["special_requirements"] = r.SpecialRequirements
	}
	if r.PreferredRoom != "" {
		fields["preferred_room"] = r.PreferredRoom
	}
	return hashFields(fields)
}

// RoomEvalHash hashes the chosen date together with a requirements
// hash. It is not what Event.RoomEvalHash holds: the steps store the
// requirements hash itself there when a room is locked, and the guard
// compares it against the current requirements hash. Nothing in the
// pipeline calls this function.
func RoomEvalHash(chosenDate, requirementsHash string) string {
	return hashFields(map[string]string{
		"chosen_date":       chosenDate,
		"requirements_hash": requirementsHash,
	})
}

// OfferHash computes the offer_hash gate value from the full set of
// inputs an offer is derived from, so any change to requirements, the
// locked room, or the chosen date invalidates a standing offer.
func OfferHash(requirementsHash, lockedRoomID, chosenDate string) string {
	return hashFields(map[string]string{
		"requirements_hash": requirementsHash,
		"locked_room_id":    lockedRoomID,
		"chosen_date":       chosenDate,
	})
}
