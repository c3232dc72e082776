package access

import "docvault/internal/model"

// CanRead reports whether the requester may read doc: owners and admins only.
// Ownership and roles can change between requests, so results must not be cached.
func CanRead(doc *model.DocumentMetadata, requesterID string, isAdmin bool) bool {
	if doc == nil {
		return false
	}
	if isAdmin {
		return true
	}
	return requesterID != "" && doc.CreatedBy == requesterID
}

// Filter returns the subset of docs the requester may read, preserving order.
// Unreadable records are dropped silently.
func Filter(docs []model.DocumentMetadata, requesterID string, isAdmin bool) []model.DocumentMetadata {
	out := make([]model.DocumentMetadata, 0, len(docs))
	for i := range docs {
		if CanRead(&docs[i], requesterID, isAdmin) {
			out = append(out, docs[i])
		}
	}
	return out
}
