package models

import "time"

// Document is the full persisted catalog state: top-level keys (series,
// characters, episodes, settings, ...) mapped to arbitrary JSON values.
type Document map[string]interface{}

// Clone returns a shallow copy. Values are shared, not copied.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the top-level keys in no particular order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot is a document as read from a backing store together with its
// write-conflict token. Version is empty when the store has no tokens.
type Snapshot struct {
	Document Document
	Version  string
	ReadAt   time.Time
}

// WriteRequest asks a store to persist the listed top-level keys of Document.
// Row-oriented stores write only Keys; file-oriented stores write the whole
// Document. Version is the token of the snapshot the document was derived
// from; stores that enforce tokens reject the write when it is stale.
type WriteRequest struct {
	Document Document
	Keys     []string
	Version  string
	Message  string // commit message for file stores
}
