package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatIdentifier(t *testing.T) {
	testCases := []struct {
		kind SymbolKind
		want string
	}{
		{MethodSymbol, "M:example.com/p.T.Do()"},
		{ConstructorSymbol, "M:example.com/p.T.Do()"},
		{PropertySymbol, "P:example.com/p.T.Do()"},
		{NamedTypeSymbol, "T:example.com/p.T.Do()"},
		{FieldSymbol, "F:example.com/p.T.Do()"},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			id, err := FormatIdentifier(Symbol{Kind: tc.kind, Name: "example.com/p.T.Do()"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestFormatIdentifier_Unsupported(t *testing.T) {
	for _, kind := range []SymbolKind{ParameterSymbol, InvalidSymbol} {
		_, err := FormatIdentifier(Symbol{Kind: kind, Name: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedDeclarationKind))
	}
}

func TestExpand(t *testing.T) {
	getter := Symbol{Kind: MethodSymbol, Name: "p.T.Name()"}
	setter := Symbol{Kind: MethodSymbol, Name: "p.T.SetName(string)"}
	prop := Symbol{Kind: PropertySymbol, Name: "p.T.Name", accessors: []Symbol{getter, setter}}

	syms := expand(prop)
	require.Len(t, syms, 3)
	assert.Equal(t, PropertySymbol, syms[0].Kind)
	assert.Empty(t, syms[0].accessors)
	assert.Equal(t, getter, syms[1])
	assert.Equal(t, setter, syms[2])

	field := Symbol{Kind: FieldSymbol, Name: "p.T.x"}
	assert.Equal(t, []Symbol{field}, expand(field))
}

func TestPropertyName(t *testing.T) {
	assert.Equal(t, "Name", propertyName("name"))
	assert.Equal(t, "ÉtatCivil", propertyName("étatCivil"))
	assert.Equal(t, "", propertyName("_"))
	assert.Equal(t, "", propertyName("_x"))
	assert.Equal(t, "", propertyName("Name"))
}

func TestSymbolKindString(t *testing.T) {
	assert.Equal(t, "property", PropertySymbol.String())
	assert.Equal(t, "?42?", SymbolKind(42).String())
}
