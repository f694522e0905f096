package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"mediadb/internal/domain/models"
	"mediadb/internal/schema"
)

// Merge combines the stored document with an incoming (possibly partial)
// document from a client that may have been working from a stripped read.
//
// For declared collections the incoming list replaces the stored one (incoming
// order wins, omitted ids are dropped) and image fields the public read could
// not have carried are restored from the stored entity with the same id: a
// gallery that is empty or fully stripped is restored whole, a mixed gallery
// gets payloads back on its stripped records only. A record's data is
// refilled only when that record arrives without it; incoming payloads are
// never replaced.
// Every other incoming key overwrites wholesale. Stored keys missing from
// incoming are kept. Neither argument is mutated.
func Merge(s *schema.Schema, current, incoming models.Document) models.Document {
	merged := current.Clone()
	for key, value := range incoming {
		if s.IsCollection(key) {
			if items, ok := value.([]interface{}); ok {
				merged[key] = mergeCollection(current[key], items)
				continue
			}
		}
		merged[key] = value
	}
	return merged
}

// Overlay is the bypass (purge) write: incoming keys replace stored keys
// verbatim, without any image restoration.
func Overlay(current, incoming models.Document) models.Document {
	merged := current.Clone()
	for key, value := range incoming {
		merged[key] = value
	}
	return merged
}

func mergeCollection(currentValue interface{}, incoming []interface{}) []interface{} {
	index := indexByID(currentValue)
	out := make([]interface{}, len(incoming))
	for i, item := range incoming {
		entity, ok := item.(map[string]interface{})
		if !ok {
			out[i] = item
			continue
		}
		id, ok := entityID(entity)
		if !ok {
			out[i] = entity
			continue
		}
		stored, ok := index[id]
		if !ok {
			out[i] = entity
			continue
		}
		out[i] = restoreImages(stored, entity)
	}
	return out
}

// restoreImages returns entity with images/image taken from stored wherever
// the incoming value is one a stripped read would have produced.
func restoreImages(stored, entity map[string]interface{}) map[string]interface{} {
	var gallery interface{}
	restoreGallery := false
	if hasValue(stored, fieldImages) {
		if needsGalleryRestore(entity[fieldImages]) {
			gallery, restoreGallery = stored[fieldImages], true
		} else {
			gallery, restoreGallery = restoreRecords(stored[fieldImages], entity[fieldImages])
		}
	}
	restoreSingle := entity[fieldImage] == nil && stored[fieldImage] != nil
	if !restoreGallery && !restoreSingle {
		return entity
	}

	out := make(map[string]interface{}, len(entity)+2)
	for k, v := range entity {
		out[k] = v
	}
	if restoreGallery {
		out[fieldImages] = gallery
	}
	if restoreSingle {
		out[fieldImage] = stored[fieldImage]
	}
	return out
}

// restoreRecords handles a gallery that mixes records with and without
// payloads, as a public read does when a cover record keeps its data. The
// incoming records and their order are kept; a record without data gets the
// payload of the stored record with the same id (or name).
func restoreRecords(storedValue, incomingValue interface{}) (interface{}, bool) {
	incoming, ok := incomingValue.([]interface{})
	if !ok {
		return nil, false
	}
	index := make(map[string]interface{})
	stored, _ := storedValue.([]interface{})
	for _, r := range stored {
		if record, ok := r.(map[string]interface{}); ok && hasPayload(record) {
			if key, ok := recordKey(record); ok {
				index[key] = record[fieldData]
			}
		}
	}

	out := make([]interface{}, len(incoming))
	restored := false
	for i, r := range incoming {
		out[i] = r
		record, ok := r.(map[string]interface{})
		if !ok || hasPayload(record) {
			continue
		}
		key, ok := recordKey(record)
		if !ok {
			continue
		}
		data, ok := index[key]
		if !ok {
			continue
		}
		next := make(map[string]interface{}, len(record)+1)
		for k, v := range record {
			next[k] = v
		}
		next[fieldData] = data
		out[i] = next
		restored = true
	}
	if !restored {
		return nil, false
	}
	return out, true
}

// recordKey identifies an image record by id, falling back to name
func recordKey(record map[string]interface{}) (string, bool) {
	if key, ok := entityID(record); ok {
		return key, true
	}
	if name, ok := record[fieldName].(string); ok && name != "" {
		return "name:" + name, true
	}
	return "", false
}

// needsGalleryRestore reports whether an incoming images value is absent,
// null, empty, or made only of records without a data payload.
func needsGalleryRestore(value interface{}) bool {
	if value == nil {
		return true
	}
	records, ok := value.([]interface{})
	if !ok {
		return false
	}
	for _, r := range records {
		record, ok := r.(map[string]interface{})
		if !ok || hasPayload(record) {
			return false
		}
	}
	return true
}

func hasPayload(record map[string]interface{}) bool {
	switch data := record[fieldData].(type) {
	case nil:
		return false
	case string:
		return data != ""
	default:
		return true
	}
}

func hasValue(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if list, ok := v.([]interface{}); ok {
		return len(list) > 0
	}
	return true
}

func indexByID(value interface{}) map[string]map[string]interface{} {
	items, _ := value.([]interface{})
	index := make(map[string]map[string]interface{}, len(items))
	for _, item := range items {
		entity, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := entityID(entity); ok {
			index[id] = entity
		}
	}
	return index
}

// entityID renders the id field as a join key. Strings and numbers live in
// separate namespaces, so 1 and "1" are different entities. Numbers are keyed
// by value, so 1700000000000 read back as a float64 matches the same id
// decoded as json.Number, and 1.0 matches 1.
func entityID(entity map[string]interface{}) (string, bool) {
	switch id := entity[fieldID].(type) {
	case string:
		return "s:" + id, true
	case float64:
		return "n:" + formatNumber(id), true
	case json.Number:
		return "n:" + numberKey(id), true
	case int:
		return "n:" + strconv.Itoa(id), true
	case int64:
		return "n:" + strconv.FormatInt(id, 10), true
	case nil:
		return "", false
	default:
		return fmt.Sprintf("x:%v", id), true
	}
}

func numberKey(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return formatNumber(f)
}

// formatNumber prints integral values in plain decimal and everything else
// without an exponent.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
