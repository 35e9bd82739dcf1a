package tenant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyTenantPatchUpsertReplacesInPlace(t *testing.T) {
	list := []*Tenant{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}}

	patched := applyTenantPatch(list, patchUpsert, &Tenant{ID: "b", Name: "renamed"}, "b")

	require.Len(t, patched, 2)
	require.Equal(t, "renamed", patched[1].Name)
	// The input slice is never mutated.
	require.Equal(t, "two", list[1].Name)
}

func TestApplyTenantPatchUpsertAppendsWhenAbsent(t *testing.T) {
	list := []*Tenant{{ID: "a"}}

	patched := applyTenantPatch(list, patchUpsert, &Tenant{ID: "c"}, "c")

	require.Len(t, patched, 2)
	require.Equal(t, "c", patched[1].ID)
	require.Len(t, list, 1)
}

func TestApplyTenantPatchRemove(t *testing.T) {
	list := []*Tenant{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	patched := applyTenantPatch(list, patchRemove, nil, "b")

	require.Len(t, patched, 2)
	require.Equal(t, "a", patched[0].ID)
	require.Equal(t, "c", patched[1].ID)
	require.Len(t, list, 3)
}

func TestDefaultSettingsScaleWithPlan(t *testing.T) {
	free := DefaultSettings(PlanFree)
	starter := DefaultSettings(PlanStarter)
	pro := DefaultSettings(PlanPro)
	enterprise := DefaultSettings(PlanEnterprise)

	require.True(t, free.AllowPublicForm)
	require.Less(t, free.Limits.MaxUsers, starter.Limits.MaxUsers)
	require.Less(t, starter.Limits.MaxUsers, pro.Limits.MaxUsers)
	require.Less(t, pro.Limits.MaxUsers, enterprise.Limits.MaxUsers)
	require.Less(t, free.Limits.MaxStorageBytes, enterprise.Limits.MaxStorageBytes)
}
