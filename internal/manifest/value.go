package manifest

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/opgraph/internal/ir"
)

// toValue converts a concrete CUE value into a state value.
func toValue(field string, v cue.Value) (ir.Value, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.NullKind:
		return ir.Empty{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		return ir.Boolean(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		return ir.Integer(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		return ir.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		list := ir.List{}
		for i := 0; iter.Next(); i++ {
			elem, err := toValue(fmt.Sprintf("%s[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		table := ir.NewTable()
		for iter.Next() {
			label := iter.Label()
			elem, err := toValue(field+"."+label, iter.Value())
			if err != nil {
				return nil, err
			}
			table[label] = elem
		}
		return table, nil
	default:
		if err := v.Err(); err != nil {
			return nil, formatCUEError(field, err)
		}
		return nil, &CompileError{Field: field, Message: "value must be concrete", Pos: v.Pos()}
	}
}

// toGo converts a state value into plain Go data CUE can encode.
func toGo(v ir.Value) any {
	switch val := v.(type) {
	case ir.Table:
		m := make(map[string]any, len(val))
		for k, elem := range val {
			m[k] = toGo(elem)
		}
		return m
	case ir.List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = toGo(elem)
		}
		return out
	case ir.String:
		return string(val)
	case ir.Integer:
		return int64(val)
	case ir.Float:
		return float64(val)
	case ir.Boolean:
		return bool(val)
	default:
		return nil
	}
}
