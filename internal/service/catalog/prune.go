package catalog

import (
	"mediadb/internal/domain/models"
	"mediadb/internal/schema"
)

// PruneResult is the outcome of PruneMigratedPayloads
type PruneResult struct {
	// Document is the input with payloads removed
	Document models.Document
	// Changed lists the collections that lost at least one payload
	Changed []string
	// Removed counts the payloads dropped
	Removed int
}

// PruneMigratedPayloads removes inline "data" payloads from gallery records
// that already carry a remote "url". doc is not mutated.
//
// Only the Changed keys should be written back, in bypass mode: Merge would
// restore exactly the payloads this removes.
func PruneMigratedPayloads(s *schema.Schema, doc models.Document) *PruneResult {
	result := &PruneResult{Document: doc.Clone()}
	for _, key := range s.Keys() {
		if !s.IsCollection(key) {
			continue
		}
		items, ok := doc[key].([]interface{})
		if !ok {
			continue
		}
		pruned := make([]interface{}, len(items))
		changed := false
		for i, item := range items {
			entity, ok := item.(map[string]interface{})
			if !ok {
				pruned[i] = item
				continue
			}
			next, n := pruneEntity(entity)
			pruned[i] = next
			if n > 0 {
				result.Removed += n
				changed = true
			}
		}
		if changed {
			result.Document[key] = pruned
			result.Changed = append(result.Changed, key)
		}
	}
	return result
}

func pruneEntity(entity map[string]interface{}) (map[string]interface{}, int) {
	records, ok := entity[fieldImages].([]interface{})
	if !ok {
		return entity, 0
	}
	removed := 0
	next := make([]interface{}, len(records))
	for i, r := range records {
		record, ok := r.(map[string]interface{})
		if !ok || !hasPayload(record) {
			next[i] = r
			continue
		}
		url, _ := record[fieldURL].(string)
		if url == "" || !IsRemoteURL(url) {
			next[i] = r
			continue
		}
		slim := make(map[string]interface{}, len(record)-1)
		for k, v := range record {
			if k != fieldData {
				slim[k] = v
			}
		}
		next[i] = slim
		removed++
	}
	if removed == 0 {
		return entity, 0
	}
	out := make(map[string]interface{}, len(entity))
	for k, v := range entity {
		out[k] = v
	}
	out[fieldImages] = next
	return out, removed
}
