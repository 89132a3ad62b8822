package annoxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notNullCtor = "github.com/jhump/annoxml/annotations.NotNull()"

func TestRegisterAndLookup(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	Register(Member{
		Name:       "T:example.com/users.User",
		Attributes: []Attribute{{Constructor: notNullCtor}},
	})
	Register(Member{
		Name: "M:example.com/users.Find(*string)",
		Parameters: []Parameter{{
			Name:       "name",
			Attributes: []Attribute{{Constructor: notNullCtor}},
		}},
	})

	m, ok := Lookup("T:example.com/users.User")
	require.True(t, ok)
	assert.Len(t, m.Attributes, 1)

	_, ok = Lookup("T:example.com/users.Missing")
	assert.False(t, ok)

	all := RegisteredMembers()
	require.Len(t, all, 2)
	assert.Equal(t, "M:example.com/users.Find(*string)", all[0].Name)
	assert.Equal(t, "T:example.com/users.User", all[1].Name)
}

func TestRegisterMergesDuplicates(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	Register(Member{Name: "F:example.com/users.Limit", Attributes: []Attribute{{Constructor: notNullCtor}}})
	Register(Member{Name: "F:example.com/users.Limit", Attributes: []Attribute{{Constructor: "x.Pure()"}}})

	attrs := FindAttributes("F:example.com/users.Limit", notNullCtor)
	assert.Len(t, attrs, 1)
	m, _ := Lookup("F:example.com/users.Limit")
	assert.Len(t, m.Attributes, 2)
	assert.Nil(t, FindAttributes("F:example.com/users.Other", notNullCtor))
}

func TestRegisterDoesNotAliasCallerSlices(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	// spare capacity lets an append write into the backing array
	first := make([]Attribute, 1, 4)
	first[0] = Attribute{Constructor: notNullCtor}
	Register(Member{Name: "F:example.com/users.Limit", Attributes: first})
	Register(Member{Name: "F:example.com/users.Limit", Attributes: []Attribute{{Constructor: "x.Pure()"}}})
	Register(Member{Name: "F:example.com/users.Limit", Attributes: []Attribute{{Constructor: "x.CanBeNull()"}}})

	assert.Equal(t, Attribute{}, first[:2][1])
	first[0].Constructor = "changed"
	m, ok := Lookup("F:example.com/users.Limit")
	require.True(t, ok)
	var ctors []string
	for _, a := range m.Attributes {
		ctors = append(ctors, a.Constructor)
	}
	assert.Equal(t, []string{notNullCtor, "x.Pure()", "x.CanBeNull()"}, ctors)
}

func TestHasAnnotations(t *testing.T) {
	var m Member
	assert.False(t, m.HasAnnotations())
	m.Parameters = []Parameter{{Name: "x"}}
	assert.False(t, m.HasAnnotations())
	m.Parameters[0].Attributes = []Attribute{{Constructor: notNullCtor}}
	assert.True(t, m.HasAnnotations())
}
