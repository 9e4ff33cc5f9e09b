// Package expr implements the predicate evaluator that drives conditional
// scans: a small expression tree of attribute references, constants, and
// comparison/boolean operators, evaluated against one record at a time.
// Grounded on internal/sql/executor/executor.go's matchWhere, and on the
// concrete MAKE_ATTRREF/MAKE_CONS/MAKE_BINOP_EXPR/MAKE_UNOP_EXPR
// expression trees built in original_source/test_assign3_2.c.
package expr

import (
	"fmt"

	"github.com/nvcode/slotdb/internal/record"
)

// Expr is any node in a predicate expression tree.
type Expr interface {
	Eval(rec *record.Record, schema record.Schema) (record.Value, error)
}

// AttrRef evaluates to the value of one schema attribute in the current
// record.
type AttrRef struct {
	Index int
}

func (a AttrRef) Eval(rec *record.Record, schema record.Schema) (record.Value, error) {
	return rec.GetAttr(schema, a.Index)
}

// Const evaluates to a fixed value, independent of the record.
type Const struct {
	Value record.Value
}

func (c Const) Eval(*record.Record, record.Schema) (record.Value, error) {
	return c.Value, nil
}

// CompareOp names a comparison operator.
type CompareOp int

const (
	OpEQ CompareOp = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
)

// Comparison evaluates Left and Right and produces a BOOL Value per Op.
// Both sides must evaluate to the same AttrType.
type Comparison struct {
	Left  Expr
	Right Expr
	Op    CompareOp
}

func (c Comparison) Eval(rec *record.Record, schema record.Schema) (record.Value, error) {
	lv, err := c.Left.Eval(rec, schema)
	if err != nil {
		return record.Value{}, err
	}
	rv, err := c.Right.Eval(rec, schema)
	if err != nil {
		return record.Value{}, err
	}
	if lv.Type != rv.Type {
		return record.Value{}, fmt.Errorf("expr: comparison type mismatch: %v vs %v", lv.Type, rv.Type)
	}

	cmp, err := compareValues(lv, rv)
	if err != nil {
		return record.Value{}, err
	}

	var result bool
	switch c.Op {
	case OpEQ:
		result = cmp == 0
	case OpNE:
		result = cmp != 0
	case OpLT:
		result = cmp < 0
	case OpLE:
		result = cmp <= 0
	case OpGT:
		result = cmp > 0
	case OpGE:
		result = cmp >= 0
	default:
		return record.Value{}, fmt.Errorf("expr: unknown compare op %v", c.Op)
	}
	return record.BoolValue(result), nil
}

// compareValues returns -1, 0, or 1 for lv compared to rv. Both values
// must share the same Type (checked by the caller).
func compareValues(lv, rv record.Value) (int, error) {
	switch lv.Type {
	case record.TypeInt:
		return compareOrdered(lv.IntV, rv.IntV), nil
	case record.TypeFloat:
		return compareOrdered(lv.FloatV, rv.FloatV), nil
	case record.TypeBool:
		return compareOrdered(boolToInt(lv.BoolV), boolToInt(rv.BoolV)), nil
	case record.TypeString:
		return compareOrdered(lv.StringV, rv.StringV), nil
	default:
		return 0, fmt.Errorf("expr: unsupported comparison type %v", lv.Type)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareOrdered[T int | int32 | float32 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// BoolOpKind names a binary boolean connective.
type BoolOpKind int

const (
	OpAnd BoolOpKind = iota
	OpOr
)

// BoolOp combines two BOOL-valued subexpressions.
type BoolOp struct {
	Left  Expr
	Right Expr
	Op    BoolOpKind
}

func (b BoolOp) Eval(rec *record.Record, schema record.Schema) (record.Value, error) {
	lv, err := b.Left.Eval(rec, schema)
	if err != nil {
		return record.Value{}, err
	}
	if lv.Type != record.TypeBool {
		return record.Value{}, fmt.Errorf("expr: BoolOp operand is not BOOL")
	}

	switch b.Op {
	case OpAnd:
		if !lv.BoolV {
			return record.BoolValue(false), nil
		}
	case OpOr:
		if lv.BoolV {
			return record.BoolValue(true), nil
		}
	default:
		return record.Value{}, fmt.Errorf("expr: unknown bool op %v", b.Op)
	}

	rv, err := b.Right.Eval(rec, schema)
	if err != nil {
		return record.Value{}, err
	}
	if rv.Type != record.TypeBool {
		return record.Value{}, fmt.Errorf("expr: BoolOp operand is not BOOL")
	}
	return record.BoolValue(rv.BoolV), nil
}

// Not negates a BOOL-valued subexpression.
type Not struct {
	Inner Expr
}

func (n Not) Eval(rec *record.Record, schema record.Schema) (record.Value, error) {
	v, err := n.Inner.Eval(rec, schema)
	if err != nil {
		return record.Value{}, err
	}
	if v.Type != record.TypeBool {
		return record.Value{}, fmt.Errorf("expr: Not operand is not BOOL")
	}
	return record.BoolValue(!v.BoolV), nil
}

// IsTrue reports whether an Expr evaluated against rec yields BOOL true.
// Any non-BOOL result is treated as false.
func IsTrue(e Expr, rec *record.Record, schema record.Schema) (bool, error) {
	v, err := e.Eval(rec, schema)
	if err != nil {
		return false, err
	}
	return v.Type == record.TypeBool && v.BoolV, nil
}
