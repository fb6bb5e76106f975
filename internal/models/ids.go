package models

import "github.com/google/uuid"

// ContainsID reports whether id is present in ids.
func ContainsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// RemoveID returns ids without id and whether it was present.
func RemoveID(ids []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	for i, existing := range ids {
		if existing == id {
			out := make([]uuid.UUID, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			return append(out, ids[i+1:]...), true
		}
	}
	return ids, false
}

// UniqueIDs drops duplicates and nil ids while keeping first-seen order.
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// CloneIDs copies ids, never returning nil.
func CloneIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out
}
