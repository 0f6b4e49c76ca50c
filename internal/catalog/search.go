package catalog

import (
	"sort"
	"strings"

	"github.com/npezzotti/rocketgate/internal/types"
)

type SortMode string

const (
	SortRecent SortMode = "recent"
	SortName   SortMode = "name"
	SortUnread SortMode = "unread"
)

// ParseSortMode maps a query-string value to a sort mode, defaulting
// to recency.
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case SortName:
		return SortName
	case SortUnread:
		return SortUnread
	default:
		return SortRecent
	}
}

// matches reports whether any of the room's searchable fields contain
// the query, case-insensitively. For placeholders the searchable
// fields are the user's name and username.
func matches(room types.Room, query, currentUsername string) bool {
	fields := []string{
		room.DisplayName(currentUsername),
		room.Name,
		room.FName,
		room.Username,
		room.Topic,
	}
	if room.LastMessage != nil {
		fields = append(fields, room.LastMessage.Text)
	}

	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// Filter returns the rooms whose searchable fields contain query. An
// empty query returns a copy of the input. The result is always a
// fresh slice: filtering is a pure derivation, reapplied whenever the
// source list or the query changes.
func Filter(rooms []types.Room, query, currentUsername string) []types.Room {
	out := make([]types.Room, 0, len(rooms))
	query = strings.ToLower(strings.TrimSpace(query))
	for _, r := range rooms {
		if query == "" || matches(r, query, currentUsername) {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a sorted copy of rooms. Recency treats a missing
// timestamp as oldest; ties everywhere preserve the incoming order.
func Sort(rooms []types.Room, mode SortMode, currentUsername string) []types.Room {
	out := make([]types.Room, len(rooms))
	copy(out, rooms)

	switch mode {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].DisplayName(currentUsername)) <
				strings.ToLower(out[j].DisplayName(currentUsername))
		})
	case SortUnread:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Unread > out[j].Unread
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LastActivity().After(out[j].LastActivity())
		})
	}
	return out
}
