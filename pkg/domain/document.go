package domain

import (
	"fmt"

	"github.com/mitchellh/copystructure"
)

// IDField is the identifier field every stored document carries
const IDField = "_id"

// Document represents a document in the database
type Document map[string]interface{}

// ID returns the document identifier and whether it is set
func (d Document) ID() (interface{}, bool) {
	id, ok := d[IDField]
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	copied, err := copystructure.Copy(map[string]interface{}(d))
	if err != nil {
		// copystructure only fails on values that never come out of JSON or msgpack
		shallow := make(Document, len(d))
		for k, v := range d {
			shallow[k] = v
		}
		return shallow
	}
	return Document(copied.(map[string]interface{}))
}

// CloneAll deep copies a slice of documents
func CloneAll(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}
	return out
}

// NormalizeDocuments turns a single document or a sequence of documents into a slice.
func NormalizeDocuments(data interface{}) ([]Document, error) {
	switch v := data.(type) {
	case Document:
		return []Document{v}, nil
	case map[string]interface{}:
		return []Document{Document(v)}, nil
	case []Document:
		return v, nil
	case []map[string]interface{}:
		docs := make([]Document, len(v))
		for i, m := range v {
			docs[i] = Document(m)
		}
		return docs, nil
	case []interface{}:
		docs := make([]Document, 0, len(v))
		for i, item := range v {
			m, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T, not an object", ErrInvalidDocument, i, item)
			}
			docs = append(docs, Document(m))
		}
		return docs, nil
	case nil:
		return nil, fmt.Errorf("%w: no data supplied", ErrInvalidDocument)
	default:
		return nil, fmt.Errorf("%w: unsupported data type %T", ErrInvalidDocument, data)
	}
}
