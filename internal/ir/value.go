package ir

import (
	"fmt"
	"slices"
)

// ValueType is the wire tag of a Value variant.
// Zero is never a valid tag so a zeroed stream reads as corruption.
type ValueType uint32

const (
	TypeEmpty ValueType = iota + 1
	TypeTable
	TypeList
	TypeString
	TypeInteger
	TypeFloat
	TypeBoolean
)

// String returns the variant name.
func (t ValueType) String() string {
	switch t {
	case TypeEmpty:
		return "Empty"
	case TypeTable:
		return "Table"
	case TypeList:
		return "List"
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeFloat:
		return "Float"
	case TypeBoolean:
		return "Boolean"
	default:
		return fmt.Sprintf("ValueType(%d)", uint32(t))
	}
}

// Value is a sealed interface for the generic state document passed between
// build phases. Only Empty, Table, List, String, Integer, Float and Boolean
// implement it.
type Value interface {
	Type() ValueType
	value() // Sealed
}

// Empty is the absent value.
type Empty struct{}

func (Empty) Type() ValueType { return TypeEmpty }
func (Empty) value() {}

// Table is a string-keyed map of values. Key order is irrelevant; use
// SortedKeys for deterministic iteration.
type Table map[string]Value

func (Table) Type() ValueType { return TypeTable }
func (Table) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) Type() ValueType { return TypeList }
func (List) value() {}

// String is a UTF-8 string value.
type String string

func (String) Type() ValueType { return TypeString }
func (String) value() {}

// Integer is a 64-bit signed integer value.
type Integer int64

func (Integer) Type() ValueType { return TypeInteger }
func (Integer) value() {}

// Float is a 64-bit IEEE-754 value.
type Float float64

func (Float) Type() ValueType { return TypeFloat }
func (Float) value() {}

// Boolean is a boolean value.
type Boolean bool

func (Boolean) Type() ValueType { return TypeBoolean }
func (Boolean) value() {}

// NewTable returns an empty table.
func NewTable() Table {
	return make(Table)
}

// SortedKeys returns the table keys in byte order.
func (t Table) SortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetString returns the string stored under key.
func (t Table) GetString(key string) (string, bool) {
	s, ok := AsString(t[key])
	return s, ok
}

// GetInteger returns the integer stored under key.
func (t Table) GetInteger(key string) (int64, bool) {
	n, ok := AsInteger(t[key])
	return n, ok
}

// GetTable returns the table stored under key.
func (t Table) GetTable(key string) (Table, bool) {
	return AsTable(t[key])
}

// EnsureTable returns the table stored under key, creating it when missing.
// An existing non-table value under key is replaced.
func (t Table) EnsureTable(key string) Table {
	if sub, ok := AsTable(t[key]); ok {
		return sub
	}
	sub := NewTable()
	t[key] = sub
	return sub
}

// AsTable unwraps a Table.
func AsTable(v Value) (Table, bool) {
	switch val := v.(type) {
	case Table:
		return val, true
	case Empty, List, String, Integer, Float, Boolean, nil:
		return nil, false
	default:
		panic(fmt.Sprintf("ir: unknown value variant %T", v))
	}
}

// AsList unwraps a List.
func AsList(v Value) (List, bool) {
	switch val := v.(type) {
	case List:
		return val, true
	case Empty, Table, String, Integer, Float, Boolean, nil:
		return nil, false
	default:
		panic(fmt.Sprintf("ir: unknown value variant %T", v))
	}
}

// AsString unwraps a String.
func AsString(v Value) (string, bool) {
	switch val := v.(type) {
	case String:
		return string(val), true
	case Empty, Table, List, Integer, Float, Boolean, nil:
		return "", false
	default:
		panic(fmt.Sprintf("ir: unknown value variant %T", v))
	}
}

// AsInteger unwraps an Integer.
func AsInteger(v Value) (int64, bool) {
	switch val := v.(type) {
	case Integer:
		return int64(val), true
	case Empty, Table, List, String, Float, Boolean, nil:
		return 0, false
	default:
		panic(fmt.Sprintf("ir: unknown value variant %T", v))
	}
}

// AsFloat unwraps a Float.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Float:
		return float64(val), true
	case Empty, Table, List, String, Integer, Boolean, nil:
		return 0, false
	default:
		panic(fmt.Sprintf("ir: unknown value variant %T", v))
	}
}

// AsBoolean unwraps a Boolean.
func AsBoolean(v Value) (bool, bool) {
	switch val := v.(type) {
	case Boolean:
		return bool(val), true
	case Empty, Table, List, String, Integer, Float, nil:
		return false, false
	default:
		panic(fmt.Sprintf("ir: unknown value variant %T", v))
	}
}

// FromGo converts decoded YAML/JSON/CUE data into a Value.
// nil becomes Empty; all integer kinds become Integer.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Empty{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Boolean(val), nil
	case int:
		return Integer(val), nil
	case int32:
		return Integer(val), nil
	case int64:
		return Integer(val), nil
	case uint32:
		return Integer(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case map[string]any:
		table := make(Table, len(val))
		for k, elem := range val {
			item, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("table[%q]: %w", k, err)
			}
			table[k] = item
		}
		return table, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
