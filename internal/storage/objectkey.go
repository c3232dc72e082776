package storage

import "strings"

// ObjectKey derives the storage key for a document: <path>/<documentID>/<fileName>.
// Exactly one leading "/" is stripped from logicalPath, so "/a/b" and "a/b" map to the same key.
// The document ID is fresh per upload, which keeps keys collision free.
func ObjectKey(logicalPath, documentID, fileName string) string {
	p := strings.TrimPrefix(logicalPath, "/")
	return p + "/" + documentID + "/" + fileName
}
