package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrInvalidUpdate = errors.New("invalid product update")
	ErrImmutableID   = errors.New("product id is immutable")
)

// Optional records whether a JSON key was present and whether it held null
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// UnmarshalJSON is only invoked when the key is present
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// ProductUpdate is a merge payload: only keys present in the request body are written.
// Schema fields are typed, except specs which holds any JSON value; any other key is passed through in Extra.
type ProductUpdate struct {
	Name        Optional[string]
	Description Optional[string]
	Price       Optional[float64]
	Category    Optional[string]
	Specs       Optional[any]
	Extra       map[string]any
}

// UnmarshalJSON decodes a request body into an update.
// Key matching is exact: "Name" is an extra attribute, not the name field.
func (u *ProductUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return fmt.Errorf("%w: body must be a JSON object", ErrInvalidUpdate)
	}

	*u = ProductUpdate{}
	for key, value := range raw {
		if key == "id" || key == "_id" {
			return ErrImmutableID
		}
		if key == "" || strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
			return fmt.Errorf("%w: unsupported key %q", ErrInvalidUpdate, key)
		}

		var err error
		switch key {
		case "name":
			err = json.Unmarshal(value, &u.Name)
		case "description":
			err = json.Unmarshal(value, &u.Description)
		case "price":
			err = json.Unmarshal(value, &u.Price)
		case "category":
			err = json.Unmarshal(value, &u.Category)
		case "specs":
			err = json.Unmarshal(value, &u.Specs)
		default:
			var v any
			if err = json.Unmarshal(value, &v); err == nil {
				if u.Extra == nil {
					u.Extra = make(map[string]any)
				}
				u.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidUpdate, key, err)
		}
	}
	return nil
}

// IsEmpty reports whether the update writes nothing
func (u ProductUpdate) IsEmpty() bool {
	return len(u.SetFields()) == 0
}

// SetFields returns the $set document in a stable order: schema fields, then extras by name
func (u ProductUpdate) SetFields() bson.D {
	var fields bson.D

	appendField(&fields, "name", u.Name)
	appendField(&fields, "description", u.Description)
	appendField(&fields, "price", u.Price)
	appendField(&fields, "category", u.Category)
	appendField(&fields, "specs", u.Specs)

	for _, key := range sortedKeys(u.Extra) {
		fields = append(fields, bson.E{Key: key, Value: u.Extra[key]})
	}
	return fields
}

func appendField[T any](fields *bson.D, key string, o Optional[T]) {
	if !o.Set {
		return
	}
	if o.Null {
		*fields = append(*fields, bson.E{Key: key, Value: nil})
		return
	}
	*fields = append(*fields, bson.E{Key: key, Value: o.Value})
}

// Apply merges the update into p. Null stores a null in place of the field.
func (u ProductUpdate) Apply(p *Product) {
	applyPointer(p, "name", &p.Name, u.Name)
	applyPointer(p, "description", &p.Description, u.Description)
	applyPointer(p, "price", &p.Price, u.Price)
	applyPointer(p, "category", &p.Category, u.Category)

	if u.Specs.Set {
		delete(p.Untyped, "specs")
		p.Specs = u.Specs.Value
		if u.Specs.Null {
			p.setUntyped("specs", nil)
		}
	}

	if len(u.Extra) > 0 && p.Extra == nil {
		p.Extra = make(map[string]any, len(u.Extra))
	}
	for key, value := range u.Extra {
		p.Extra[key] = value
	}
}

func applyPointer[T any](p *Product, key string, field **T, o Optional[T]) {
	if !o.Set {
		return
	}
	delete(p.Untyped, key)
	if o.Null {
		*field = nil
		p.setUntyped(key, nil)
		return
	}
	v := o.Value
	*field = &v
}
