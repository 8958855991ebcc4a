package types_test

import (
	"math"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

func TestTypeCheck(t *testing.T) {
	point := types.StructOf("point",
		types.StructFieldType{Name: "x", Type: types.Primitive(types.FieldInt32)},
		types.StructFieldType{Name: "y", Type: types.Primitive(types.FieldInt32)},
	)
	acc := sdk.AccAddress(make([]byte, 20))

	cases := []struct {
		name  string
		value types.Field
		typ   types.FieldType
		ok    bool
	}{
		{"bool", types.BoolField(true), types.Primitive(types.FieldBool), true},
		{"kind mismatch", types.BoolField(true), types.Primitive(types.FieldUint8), false},
		{"uint8 max", types.Uint8Field(math.MaxUint8), types.Primitive(types.FieldUint8), true},
		{"uint8 overflow", types.Field{Kind: types.FieldUint8, Uint: 256}, types.Primitive(types.FieldUint8), false},
		{"int16 underflow", types.Field{Kind: types.FieldInt16, Int: math.MinInt16 - 1}, types.Primitive(types.FieldInt16), false},
		{"account", types.AccountField(acc), types.Primitive(types.FieldAccountID), true},
		{"bad account", types.Field{Kind: types.FieldAccountID, Str: "nope"}, types.Primitive(types.FieldAccountID), false},
		{"none", types.NoneField(), types.OptionalOf(types.Primitive(types.FieldString)), true},
		{"some", types.SomeField(types.StringField("a")), types.OptionalOf(types.Primitive(types.FieldString)), true},
		{"some wrong elem", types.SomeField(types.BoolField(false)), types.OptionalOf(types.Primitive(types.FieldString)), false},
		{"array", types.ArrayField(types.Uint64Field(1), types.Uint64Field(2)), types.ArrayOf(2, types.Primitive(types.FieldUint64)), true},
		{"array short", types.ArrayField(types.Uint64Field(1)), types.ArrayOf(2, types.Primitive(types.FieldUint64)), false},
		{"empty list", types.ListField(), types.ListOf(types.Primitive(types.FieldBytes)), true},
		{"struct", types.StructField("point",
			types.NamedField{Name: "x", Value: types.Int32Field(1)},
			types.NamedField{Name: "y", Value: types.Int32Field(-1)}), point, true},
		{"struct wrong member", types.StructField("point",
			types.NamedField{Name: "y", Value: types.Int32Field(1)},
			types.NamedField{Name: "x", Value: types.Int32Field(-1)}), point, false},
		{"struct wrong name", types.StructField("pt"), point, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.value.TypeCheck(tc.typ)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestFieldTypeValidate(t *testing.T) {
	require.NoError(t, types.ListOf(types.OptionalOf(types.Primitive(types.FieldBool))).Validate())
	require.Error(t, types.FieldType{Kind: types.FieldList}.Validate())
	require.Error(t, types.FieldType{Kind: types.FieldKind(99)}.Validate())
	require.Error(t, types.StructOf("dup",
		types.StructFieldType{Name: "a", Type: types.Primitive(types.FieldBool)},
		types.StructFieldType{Name: "a", Type: types.Primitive(types.FieldBool)},
	).Validate())

	deep := types.Primitive(types.FieldBool)
	for i := 0; i <= types.MaxFieldDepth; i++ {
		deep = types.ListOf(deep)
	}
	require.Error(t, deep.Validate())
}

func TestCheckFieldsArity(t *testing.T) {
	declared := []types.FieldType{types.Primitive(types.FieldUint64)}
	require.NoError(t, types.CheckFields([]types.Field{types.Uint64Field(1)}, declared))
	require.Error(t, types.CheckFields(nil, declared))
	require.Error(t, types.CheckFields([]types.Field{types.Uint64Field(1), types.Uint64Field(2)}, declared))
}

// genTyped draws a well-formed type together with a value inhabiting it.
func genTyped(t *rapid.T, depth int) (types.FieldType, types.Field) {
	kinds := []types.FieldKind{types.FieldBool, types.FieldUint8, types.FieldInt64, types.FieldString, types.FieldBytes}
	if depth < 3 {
		kinds = append(kinds, types.FieldOptional, types.FieldArray, types.FieldList, types.FieldStruct)
	}
	switch kind := rapid.SampledFrom(kinds).Draw(t, "kind"); kind {
	case types.FieldBool:
		return types.Primitive(kind), types.BoolField(rapid.Bool().Draw(t, "bool"))
	case types.FieldUint8:
		return types.Primitive(kind), types.Uint8Field(rapid.Uint8().Draw(t, "u8"))
	case types.FieldInt64:
		return types.Primitive(kind), types.Int64Field(rapid.Int64().Draw(t, "i64"))
	case types.FieldString:
		return types.Primitive(kind), types.StringField(rapid.String().Draw(t, "str"))
	case types.FieldBytes:
		return types.Primitive(kind), types.BytesField(rapid.SliceOf(rapid.Byte()).Draw(t, "bytes"))
	case types.FieldOptional:
		elemT, elemV := genTyped(t, depth+1)
		if rapid.Bool().Draw(t, "some") {
			return types.OptionalOf(elemT), types.SomeField(elemV)
		}
		return types.OptionalOf(elemT), types.NoneField()
	case types.FieldArray, types.FieldList:
		elemT, first := genTyped(t, depth+1)
		n := rapid.IntRange(0, 3).Draw(t, "n")
		items := make([]types.Field, n)
		for i := range items {
			items[i] = first
		}
		if kind == types.FieldArray {
			return types.ArrayOf(uint64(n), elemT), types.ArrayField(items...)
		}
		return types.ListOf(elemT), types.ListField(items...)
	default:
		n := rapid.IntRange(0, 3).Draw(t, "members")
		decl := make([]types.StructFieldType, n)
		members := make([]types.NamedField, n)
		for i := 0; i < n; i++ {
			ft, fv := genTyped(t, depth+1)
			name := string(rune('a' + i))
			decl[i] = types.StructFieldType{Name: name, Type: ft}
			members[i] = types.NamedField{Name: name, Value: fv}
		}
		return types.StructOf("s", decl...), types.StructField("s", members...)
	}
}

func TestTypeCheckAcceptsGeneratedValues(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		typ, value := genTyped(rt, 0)
		if err := typ.Validate(); err != nil {
			rt.Fatalf("generated type invalid: %v", err)
		}
		if err := value.TypeCheck(typ); err != nil {
			rt.Fatalf("generated value rejected: %v", err)
		}
	})
}
