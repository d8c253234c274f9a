package web

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"time"

	"github.com/gorilla/schema"
)

// dateLayout is accepted for time fields besides RFC3339.
const dateLayout = "2006-01-02"

// formDecoder maps form keys to request fields by json tag. Nested structs use dotted keys
// ("pagination.page_size"), slices take repeated keys and a single empty value yields an empty
// slice. Keys without a matching field are ignored.
var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("json")
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Time{}, func(s string) reflect.Value {
		t, err := parseTime(s)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t)
	})
	d.RegisterConverter([]byte(nil), func(s string) reflect.Value {
		return reflect.ValueOf([]byte(s))
	})
	return d
}

// FormError reports a form value that could not be converted to its field type.
type FormError struct {
	Field string
	Err   error
}

func (e *FormError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FormError) Unwrap() error { return e.Err }

// DecodeForm fills dst, a pointer to a struct, from form values.
func DecodeForm(values url.Values, dst any) error {
	err := formDecoder.Decode(dst, values)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if !errors.As(err, &multi) || len(multi) == 0 {
		return err
	}
	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &FormError{Field: keys[0], Err: conversionMessage(multi[keys[0]])}
}

func conversionMessage(err error) error {
	var ce schema.ConversionError
	if !errors.As(err, &ce) || ce.Type == nil {
		return err
	}
	t := ce.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeOf(time.Time{}) {
		return errors.New("must be an RFC3339 time or a YYYY-MM-DD date")
	}
	switch t.Kind() {
	case reflect.Bool:
		return errors.New("must be a boolean")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return errors.New("must be an integer")
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return errors.New("must be a non-negative integer")
	case reflect.Float32, reflect.Float64:
		return errors.New("must be a number")
	}
	return fmt.Errorf("must be a valid %s", t)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}
