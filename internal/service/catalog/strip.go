package catalog

import (
	"regexp"

	"mediadb/internal/domain/models"
	"mediadb/internal/schema"
)

const (
	fieldID      = "id"
	fieldImage   = "image"
	fieldImages  = "images"
	fieldName    = "name"
	fieldData    = "data"
	fieldURL     = "url"
	fieldIsCover = "iscover"
)

// remoteURL matches values that reference an image by URL scheme
// (http://, https://, s3://, ...). data: URIs have no "//" and do not match.
var remoteURL = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// Strip returns the public view of doc: inline image payloads are removed
// from every entity of every declared collection, cover records and
// URL-backed single images are kept. doc is never mutated and subtrees that
// need no change are shared with the result.
func Strip(s *schema.Schema, doc models.Document) models.Document {
	if doc == nil {
		return nil
	}
	out := make(models.Document, len(doc))
	for key, value := range doc {
		if !s.IsCollection(key) {
			out[key] = value
			continue
		}
		out[key] = stripCollection(value)
	}
	return out
}

func stripCollection(value interface{}) interface{} {
	items, ok := value.([]interface{})
	if !ok {
		return value
	}
	out := make([]interface{}, len(items))
	for i, item := range items {
		entity, ok := item.(map[string]interface{})
		if !ok {
			out[i] = item
			continue
		}
		out[i] = stripEntity(entity)
	}
	return out
}

func stripEntity(entity map[string]interface{}) map[string]interface{} {
	images, hasImages := entity[fieldImages]
	image, hasImage := entity[fieldImage]
	if !hasImages && !hasImage {
		return entity
	}

	out := make(map[string]interface{}, len(entity))
	for k, v := range entity {
		out[k] = v
	}
	if hasImages {
		out[fieldImages] = stripGallery(images)
	}
	if hasImage {
		out[fieldImage] = stripSingle(image)
	}
	return out
}

// stripGallery drops "data" from every non-cover record, keeping id, name,
// url and the rest so the admin UI can show placeholders and Merge can
// re-associate records.
func stripGallery(value interface{}) interface{} {
	records, ok := value.([]interface{})
	if !ok {
		return value
	}
	out := make([]interface{}, len(records))
	for i, r := range records {
		record, ok := r.(map[string]interface{})
		if !ok || isCover(record) {
			out[i] = r
			continue
		}
		if _, has := record[fieldData]; !has {
			out[i] = record
			continue
		}
		stripped := make(map[string]interface{}, len(record)-1)
		for k, v := range record {
			if k != fieldData {
				stripped[k] = v
			}
		}
		out[i] = stripped
	}
	return out
}

func stripSingle(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok && remoteURL.MatchString(s) {
		return s
	}
	return nil
}

func isCover(record map[string]interface{}) bool {
	cover, _ := record[fieldIsCover].(bool)
	return cover
}

// IsRemoteURL reports whether value is a URL-scheme image reference.
func IsRemoteURL(value string) bool {
	return remoteURL.MatchString(value)
}
