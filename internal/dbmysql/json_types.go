package dbmysql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Int64List is a JSON-encoded list of int64 ids stored in a single
// column. Used for the denormalized destination feed ids on a post.
type Int64List []int64

func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *Int64List) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into Int64List", src)
	}
}

// Contains reports whether id is present in the list.
func (l Int64List) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Int16List is a JSON-encoded list of small ints, used for a user's
// hidden-comment-type preferences.
type Int16List []int16

func (l Int16List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *Int16List) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into Int16List", src)
	}
}
