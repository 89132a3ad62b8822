package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackagePath(t *testing.T) {
	assert.Equal(t, "github.com/jhump/annoxml/annotations", PackagePath)
}

func TestFlagsString(t *testing.T) {
	testCases := []struct {
		name string
		val  interface{ String() string }
		want string
	}{
		{"none", ImplicitUseKindFlags(0), "none"},
		{"single", ImplicitUseKindAssign, "assign"},
		{"default", ImplicitUseKindDefault, "access|assign|fixed constructor"},
		{"unknown bits", ImplicitUseKindAccess | 64, "access|?64?"},
		{"target", ImplicitUseTargetWithMembers, "itself|members"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.val.String())
		})
	}
}

func TestConstructors(t *testing.T) {
	c := Contract("=> halt")
	assert.Equal(t, ContractAnnotation{Contract: "=> halt"}, c)

	u := UsedImplicitlyAs(ImplicitUseKindAccess, ImplicitUseKindAssign)
	assert.Equal(t, ImplicitUseKindAccess|ImplicitUseKindAssign, u.UseKindFlags)
	assert.Equal(t, ImplicitUseTargetItself, u.TargetFlags)
}
