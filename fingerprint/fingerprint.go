// Package fingerprint derives short, deterministic cache keys from the
// semantically relevant fields of an operation's inputs.
//
// A key is serialized to JSON (struct fields in declaration order, map keys
// sorted), hashed with SHA-256 and suffixed with the key's namespace. When
// serialization fails the key degrades to its fallback field, still suffixed
// with the namespace, so entries of different tiers never collide. A string
// that is not valid UTF-8 counts as a failure: JSON would replace its bad
// bytes with U+FFFD and distinct keys would share a hash.
package fingerprint

import (
	_ "crypto/sha256" // registers SHA-256 for go-digest
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

// ErrKeyEncoding reports that a key could not be serialized canonically.
var ErrKeyEncoding = errors.New("fingerprint: key encoding failed")

var errInvalidUTF8 = errors.New("string is not valid UTF-8")

// Key is implemented by every value that addresses a cache tier.
//
// The exported fields of a Key are its semantic fields; anything that must not
// influence the fingerprint should be unexported or tagged `json:"-"`.
type Key interface {
	// Namespace is the discriminator appended to every fingerprint.
	Namespace() string

	// FallbackKey is the most identifying single field of the key. It is
	// used when canonical serialization fails and may be non-unique.
	FallbackKey() string
}

// Result is the outcome of fingerprinting a key.
type Result struct {
	// Value is the fingerprint string, safe for use as a map key.
	Value string

	// Fallback is true when Value was derived from the key's fallback field.
	Fallback bool

	// Err holds the serialization failure that caused the fallback. It wraps
	// ErrKeyEncoding and is nil on the canonical path.
	Err error
}

func (r Result) String() string { return r.Value }

// Of computes the fingerprint of k. It never fails: serialization errors
// select the fallback arm and are reported through Result.Err.
func Of(k Key) Result {
	data, err := marshal(k)
	if err != nil {
		return Result{
			Value:    k.FallbackKey() + "-" + k.Namespace(),
			Fallback: true,
			Err:      fmt.Errorf("%w: %w", ErrKeyEncoding, err),
		}
	}
	return Result{Value: digest.SHA256.FromBytes(data).Encoded() + "-" + k.Namespace()}
}

func marshal(k Key) ([]byte, error) {
	if err := checkUTF8(reflect.ValueOf(k)); err != nil {
		return nil, err
	}
	return json.Marshal(k)
}

var marshalerType = reflect.TypeFor[json.Marshaler]()

// checkUTF8 walks the values json.Marshal would encode and rejects strings it
// would rewrite. Types with their own MarshalJSON are responsible for their
// output.
func checkUTF8(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}
	if v.Type().Implements(marshalerType) {
		return nil
	}
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("%w: %q", errInvalidUTF8, v.String())
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem())
		}
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			// Embedded structs contribute their exported fields.
			if f := t.Field(i); !f.IsExported() && !f.Anonymous {
				continue
			}
			if err := checkUTF8(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkUTF8(iter.Key()); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		// []byte is base64 encoded and therefore lossless.
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := range v.Len() {
			if err := checkUTF8(v.Index(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// String is shorthand for Of(k).Value.
func String(k Key) string {
	return Of(k).Value
}
