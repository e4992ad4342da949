package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"license-tracker/apperror"
)

const maxBodyBytes = 10 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ignored accepts read-only fields that clients echo back from GET responses.
type ignored struct {
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
	UpdatedAt json.RawMessage `json:"updatedAt,omitempty"`
}

// decodeRows reads a JSON array of objects into rows. Each element is decoded
// strictly: unknown fields and wrong types are rejected, then validated.
// Problems are reported per row as rows[i].field.
func decodeRows[T any](w http.ResponseWriter, r *http.Request, kind string) ([]T, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperror.Field("body", "could not be read: "+err.Error())
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, apperror.Field("body", "Invalid JSON payload provided")
		}
		return nil, apperror.Field("body", fmt.Sprintf("Invalid data format. Expected an array of %s objects.", kind))
	}

	rows := make([]T, len(raw))
	fields := map[string]string{}
	for i, item := range raw {
		prefix := fmt.Sprintf("rows[%d]", i)
		if err := decodeStrict(item, &rows[i]); err != nil {
			for k, v := range decodeProblem(prefix, err) {
				fields[k] = v
			}
			continue
		}
		for k, v := range validationProblems(prefix, validate.Struct(rows[i])) {
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		return nil, apperror.NewValidation(fields)
	}
	return rows, nil
}

// decodeObject reads a single strict JSON object.
func decodeObject[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperror.Field("body", "could not be read: "+err.Error())
	}

	var v T
	if err := decodeStrict(body, &v); err != nil {
		return nil, apperror.NewValidation(decodeProblem("body", err))
	}
	if problems := validationProblems("body", validate.Struct(v)); len(problems) > 0 {
		return nil, apperror.NewValidation(problems)
	}
	return &v, nil
}

func decodeStrict(data []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after object")
	}
	return nil
}

func decodeProblem(prefix string, err error) map[string]string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return map[string]string{prefix + "." + typeErr.Field: "must be " + jsonKind(typeErr.Type)}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return map[string]string{prefix + "." + name: "is not a known field"}
	default:
		return map[string]string{prefix: strings.TrimPrefix(err.Error(), "json: ")}
	}
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Bool:
		return "a boolean"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "a " + t.String()
	}
}

func validationProblems(prefix string, err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{prefix: err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[prefix+"."+fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "contains":
		return "must contain " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
