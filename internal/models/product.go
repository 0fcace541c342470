package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog document. Every field except ID is optional and the
// store does not enforce the shape, so absent fields are nil.
// A schema field stored as null, or as a value that cannot be read as the
// field's type, is kept as stored in Untyped and rendered in the field's place.
// Keys outside the schema are kept in Extra and rendered alongside the known fields.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        *string            `bson:"name,omitempty"`
	Description *string            `bson:"description,omitempty"`
	Price       *float64           `bson:"price,omitempty"`
	Category    *string            `bson:"category,omitempty"`
	Specs       any                `bson:"specs,omitempty"`
	Untyped     map[string]any     `bson:"-"`
	Extra       map[string]any     `bson:",inline"`
}

// Clone returns a copy that shares no top-level maps with p
func (p Product) Clone() Product {
	out := p
	if specs, ok := p.Specs.(map[string]any); ok {
		out.Specs = copyMap(specs)
	}
	if p.Untyped != nil {
		out.Untyped = copyMap(p.Untyped)
	}
	if p.Extra != nil {
		out.Extra = copyMap(p.Extra)
	}
	return out
}

// MarshalJSON renders id first, then schema fields, then extra keys in sorted order
func (p Product) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, value any) error {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		name, _ := json.Marshal(key)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(encoded)
		return nil
	}
	field := func(key string, set bool, value any) error {
		if set {
			return write(key, value)
		}
		if stored, ok := p.Untyped[key]; ok {
			return write(key, stored)
		}
		return nil
	}

	var id any = p.ID
	if stored, ok := p.Untyped["_id"]; ok && p.ID.IsZero() {
		id = stored
	}
	if err := write("id", id); err != nil {
		return nil, err
	}

	fields := []struct {
		key   string
		set   bool
		value any
	}{
		{"name", p.Name != nil, p.Name},
		{"description", p.Description != nil, p.Description},
		{"price", p.Price != nil, p.Price},
		{"category", p.Category != nil, p.Category},
		{"specs", p.Specs != nil, p.Specs},
	}
	for _, f := range fields {
		if err := field(f.key, f.set, f.value); err != nil {
			return nil, err
		}
	}

	for _, key := range sortedKeys(p.Extra) {
		if isSchemaKey(key) {
			continue
		}
		if err := write(key, p.Extra[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON is the inverse of MarshalJSON
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Product{}
	for key, value := range raw {
		var ok bool
		switch key {
		case "id":
			key = "_id"
			var id primitive.ObjectID
			if !isJSONNull(value) && json.Unmarshal(value, &id) == nil {
				p.ID, ok = id, true
			}
		case "name":
			ok = decodeJSONField(value, &p.Name)
		case "description":
			ok = decodeJSONField(value, &p.Description)
		case "price":
			ok = decodeJSONField(value, &p.Price)
		case "category":
			ok = decodeJSONField(value, &p.Category)
		case "specs":
			ok = !isJSONNull(value) && json.Unmarshal(value, &p.Specs) == nil
		default:
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = v
			continue
		}
		if ok {
			continue
		}

		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		p.setUntyped(key, v)
	}
	return nil
}

func decodeJSONField[T any](value json.RawMessage, field **T) bool {
	if isJSONNull(value) {
		return false
	}
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return false
	}
	*field = &v
	return true
}

func isJSONNull(value []byte) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// UnmarshalBSON decodes a stored document without rejecting unexpected shapes.
// Numbers and booleans are read as text for the string fields, and numeric
// strings and booleans are read as prices. Anything else stays as stored.
func (p *Product) UnmarshalBSON(data []byte) error {
	elems, err := bson.Raw(data).Elements()
	if err != nil {
		return err
	}

	*p = Product{}
	for _, elem := range elems {
		key, value := elem.Key(), elem.Value()

		switch key {
		case "_id":
			if oid, ok := value.ObjectIDOK(); ok {
				p.ID = oid
				continue
			}
		case "name":
			if s, ok := coerceString(value); ok {
				p.Name = &s
				continue
			}
		case "description":
			if s, ok := coerceString(value); ok {
				p.Description = &s
				continue
			}
		case "category":
			if s, ok := coerceString(value); ok {
				p.Category = &s
				continue
			}
		case "price":
			if f, ok := coerceNumber(value); ok {
				p.Price = &f
				continue
			}
		case "specs":
			if value.Type != bson.TypeNull && value.Type != bson.TypeUndefined {
				specs, err := decodeValue(value)
				if err != nil {
					return fmt.Errorf("decoding specs: %w", err)
				}
				p.Specs = specs
				continue
			}
		default:
			v, err := decodeValue(value)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = v
			continue
		}

		v, err := decodeValue(value)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		p.setUntyped(key, v)
	}
	return nil
}

func (p *Product) setUntyped(key string, value any) {
	if p.Untyped == nil {
		p.Untyped = make(map[string]any)
	}
	p.Untyped[key] = value
}

func coerceString(v bson.RawValue) (string, bool) {
	switch v.Type {
	case bson.TypeString:
		return v.StringValue(), true
	case bson.TypeInt32:
		return strconv.FormatInt(int64(v.Int32()), 10), true
	case bson.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10), true
	case bson.TypeDouble:
		if f := v.Double(); isFinite(f) {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	case bson.TypeDecimal128:
		return v.Decimal128().String(), true
	case bson.TypeBoolean:
		return strconv.FormatBool(v.Boolean()), true
	case bson.TypeObjectID:
		return v.ObjectID().Hex(), true
	}
	return "", false
}

func coerceNumber(v bson.RawValue) (float64, bool) {
	var f float64
	switch v.Type {
	case bson.TypeDouble:
		f = v.Double()
	case bson.TypeInt32:
		f = float64(v.Int32())
	case bson.TypeInt64:
		f = float64(v.Int64())
	case bson.TypeDecimal128:
		parsed, err := strconv.ParseFloat(v.Decimal128().String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bson.TypeString:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.StringValue()), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bson.TypeBoolean:
		if v.Boolean() {
			f = 1
		}
	default:
		return 0, false
	}
	return f, isFinite(f)
}

// decodeValue converts a stored value into plain Go values that render as JSON.
// Non-finite doubles become nil since JSON cannot carry them.
func decodeValue(v bson.RawValue) (any, error) {
	switch v.Type {
	case bson.TypeNull, bson.TypeUndefined:
		return nil, nil
	case bson.TypeDouble:
		if f := v.Double(); isFinite(f) {
			return f, nil
		}
		return nil, nil
	case bson.TypeEmbeddedDocument:
		elems, err := v.Document().Elements()
		if err != nil {
			return nil, err
		}
		doc := make(map[string]any, len(elems))
		for _, elem := range elems {
			value, err := decodeValue(elem.Value())
			if err != nil {
				return nil, err
			}
			doc[elem.Key()] = value
		}
		return doc, nil
	case bson.TypeArray:
		values, err := v.Array().Values()
		if err != nil {
			return nil, err
		}
		arr := make([]any, 0, len(values))
		for _, item := range values {
			value, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		return arr, nil
	default:
		var out any
		if err := v.Unmarshal(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isSchemaKey(key string) bool {
	switch key {
	case "id", "_id", "name", "description", "price", "category", "specs":
		return true
	}
	return false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
