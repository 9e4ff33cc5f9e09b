package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvcode/slotdb/internal/record"
)

func employeeSchema() record.Schema {
	return record.Schema{
		Attrs: []record.Attribute{
			{Name: "id", Type: record.TypeInt},
			{Name: "name", Type: record.TypeString, Length: 10},
			{Name: "salary", Type: record.TypeFloat},
		},
	}
}

func employeeRecord(t *testing.T, schema record.Schema, id int32, name string, salary float32) *record.Record {
	t.Helper()
	r := record.NewRecord(schema)
	require.NoError(t, r.SetAttr(schema, 0, record.IntValue(id)))
	require.NoError(t, r.SetAttr(schema, 1, record.StringValue(name)))
	require.NoError(t, r.SetAttr(schema, 2, record.FloatValue(salary)))
	return r
}

func TestComparisonLessThan(t *testing.T) {
	schema := employeeSchema()
	rec := employeeRecord(t, schema, 1, "bob", 700.0)

	cond := Comparison{
		Left:  AttrRef{Index: 2},
		Right: Const{Value: record.FloatValue(800.0)},
		Op:    OpLT,
	}
	ok, err := IsTrue(cond, rec, schema)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNotNegatesComparison(t *testing.T) {
	// Mirrors the NOT (salary < 800.0) scenario built from MAKE_ATTRREF /
	// MAKE_CONS / MAKE_BINOP_EXPR / MAKE_UNOP_EXPR in the original test
	// driver.
	schema := employeeSchema()
	low := employeeRecord(t, schema, 1, "bob", 700.0)
	high := employeeRecord(t, schema, 2, "carol", 900.0)

	cond := Not{Inner: Comparison{
		Left:  AttrRef{Index: 2},
		Right: Const{Value: record.FloatValue(800.0)},
		Op:    OpLT,
	}}

	ok, err := IsTrue(cond, low, schema)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = IsTrue(cond, high, schema)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBoolOpAndShortCircuits(t *testing.T) {
	schema := employeeSchema()
	rec := employeeRecord(t, schema, 1, "bob", 700.0)

	// Right would fail with a type mismatch if it were evaluated.
	cond := BoolOp{
		Left:  Comparison{Left: AttrRef{Index: 0}, Right: Const{Value: record.IntValue(99)}, Op: OpEQ},
		Right: Comparison{Left: AttrRef{Index: 0}, Right: Const{Value: record.StringValue("x")}, Op: OpEQ},
		Op:    OpAnd,
	}
	ok, err := IsTrue(cond, rec, schema)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoolOpOr(t *testing.T) {
	schema := employeeSchema()
	rec := employeeRecord(t, schema, 1, "bob", 700.0)

	cond := BoolOp{
		Left:  Comparison{Left: AttrRef{Index: 0}, Right: Const{Value: record.IntValue(1)}, Op: OpEQ},
		Right: Const{Value: record.BoolValue(false)},
		Op:    OpOr,
	}
	ok, err := IsTrue(cond, rec, schema)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestComparisonTypeMismatchErrors(t *testing.T) {
	schema := employeeSchema()
	rec := employeeRecord(t, schema, 1, "bob", 700.0)

	cond := Comparison{
		Left:  AttrRef{Index: 0},
		Right: Const{Value: record.StringValue("nope")},
		Op:    OpEQ,
	}
	_, err := IsTrue(cond, rec, schema)
	require.Error(t, err)
}

func TestStringComparison(t *testing.T) {
	schema := employeeSchema()
	rec := employeeRecord(t, schema, 1, "bob", 700.0)

	cond := Comparison{
		Left:  AttrRef{Index: 1},
		Right: Const{Value: record.StringValue("bob")},
		Op:    OpEQ,
	}
	ok, err := IsTrue(cond, rec, schema)
	require.NoError(t, err)
	require.True(t, ok)
}
