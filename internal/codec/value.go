package codec

import (
	"fmt"
	"math"

	"github.com/roach88/opgraph/internal/ir"
)

// maxValueDepth bounds nesting so a hostile file cannot exhaust the stack.
const maxValueDepth = 256

// EncodeValueDocument serializes root as a complete value document.
// Table keys are written in sorted order so equal tables encode identically.
func EncodeValueDocument(root ir.Table) ([]byte, error) {
	var e encoder
	e.header(ir.ValueDocumentMagic, ir.ValueDocumentVersion)
	if err := encodeValue(&e, root, 0); err != nil {
		return nil, err
	}
	return e.bytes(), nil
}

func encodeValue(e *encoder, v ir.Value, depth int) error {
	if depth > maxValueDepth {
		return fmt.Errorf("value nesting exceeds %d levels", maxValueDepth)
	}
	if v == nil {
		v = ir.Empty{}
	}

	e.uint32(uint32(v.Type()))
	switch val := v.(type) {
	case ir.Empty:
	case ir.Table:
		e.uint32(uint32(len(val)))
		for _, k := range val.SortedKeys() {
			e.string(k)
			if err := encodeValue(e, val[k], depth+1); err != nil {
				return fmt.Errorf("table[%q]: %w", k, err)
			}
		}
	case ir.List:
		e.uint32(uint32(len(val)))
		for i, elem := range val {
			if err := encodeValue(e, elem, depth+1); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
	case ir.String:
		e.string(string(val))
	case ir.Integer:
		e.uint64(uint64(val))
	case ir.Float:
		e.uint64(math.Float64bits(float64(val)))
	case ir.Boolean:
		e.bool(bool(val))
	default:
		return fmt.Errorf("unknown value variant %T", v)
	}
	return nil
}

// DecodeValueDocument parses a complete value document. The root must be a
// Table and the input must end exactly where the root ends.
func DecodeValueDocument(data []byte) (ir.Table, error) {
	d := newDecoder(data)
	if err := d.header(ir.ValueDocumentMagic, ir.ValueDocumentVersion); err != nil {
		return nil, err
	}

	root, err := decodeValue(d, 0)
	if err != nil {
		return nil, err
	}
	table, ok := root.(ir.Table)
	if !ok {
		return nil, corruptf("root value is %s, expected Table", root.Type())
	}
	if err := d.end(); err != nil {
		return nil, err
	}
	return table, nil
}

func decodeValue(d *decoder, depth int) (ir.Value, error) {
	if depth > maxValueDepth {
		return nil, corruptf("value nesting exceeds %d levels", maxValueDepth)
	}

	tag, err := d.uint32("value tag")
	if err != nil {
		return nil, err
	}

	switch ir.ValueType(tag) {
	case ir.TypeEmpty:
		return ir.Empty{}, nil
	case ir.TypeTable:
		n, err := d.count("table", 8)
		if err != nil {
			return nil, err
		}
		table := make(ir.Table, n)
		for range n {
			key, err := d.string("table key")
			if err != nil {
				return nil, err
			}
			if _, dup := table[key]; dup {
				return nil, corruptf("duplicate table key %q", key)
			}
			if table[key], err = decodeValue(d, depth+1); err != nil {
				return nil, err
			}
		}
		return table, nil
	case ir.TypeList:
		n, err := d.count("list", 4)
		if err != nil {
			return nil, err
		}
		list := make(ir.List, n)
		for i := range list {
			if list[i], err = decodeValue(d, depth+1); err != nil {
				return nil, err
			}
		}
		return list, nil
	case ir.TypeString:
		s, err := d.string("string")
		return ir.String(s), err
	case ir.TypeInteger:
		n, err := d.int64("integer")
		return ir.Integer(n), err
	case ir.TypeFloat:
		f, err := d.float64("float")
		return ir.Float(f), err
	case ir.TypeBoolean:
		b, err := d.bool("boolean")
		return ir.Boolean(b), err
	default:
		return nil, corruptf("unknown value tag %d at offset %d", tag, d.off-4)
	}
}
