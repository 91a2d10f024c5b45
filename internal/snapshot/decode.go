package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Decode reads a YAML (or JSON) snapshot document and validates it.
func Decode(r io.Reader) (Snapshot, error) {
	var doc Snapshot
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Snapshot{}, fmt.Errorf("snapshot: empty document")
		}
		return Snapshot{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	if err := Validate(doc); err != nil {
		return Snapshot{}, err
	}
	return doc, nil
}

// LoadFile decodes the snapshot stored at path.
func LoadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// FieldError describes one struct validation failure.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError lists the fields of a payload that failed validation.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.Fields) == 0 {
		return "snapshot: validation failed"
	}
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return "snapshot: validation failed: " + strings.Join(parts, ", ")
}

// Validate checks struct tags on any raw payload.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("snapshot: validate: %w", err)
	}
	vErr := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		vErr.Fields = append(vErr.Fields, FieldError{Field: trimNamespace(fe.Namespace()), Rule: fe.Tag()})
	}
	return vErr
}

// trimNamespace drops the root struct name from a validator namespace.
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
