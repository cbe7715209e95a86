package risk

import (
	"testing"

	"finmodel/internal/model"
	"finmodel/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLoadsAndCaches(t *testing.T) {
	db := memory.New()
	defer db.Close()
	require.NoError(t, db.PutDamageFunction(model.DamageFunctionDef{
		FunctionCode: "F1", PerilType: "FLOOD", DamageTarget: "PPE", CurveDefinition: `[[0,0],[1,1]]`,
	}))

	reg := NewRegistry(db)

	fn, err := reg.FunctionForPeril("FLOOD", "PPE")
	require.NoError(t, err)
	require.NotNil(t, fn)
	assert.Equal(t, "F1", fn.Code)

	fn2, err := reg.FunctionForPeril("FLOOD", "PPE")
	require.NoError(t, err)
	assert.Same(t, fn, fn2)
}

func TestRegistryMissingFunctionReturnsNilNotError(t *testing.T) {
	db := memory.New()
	defer db.Close()

	reg := NewRegistry(db)
	fn, err := reg.FunctionForPeril("DROUGHT", "PPE")
	require.NoError(t, err)
	assert.Nil(t, fn)
}

func TestRegistryClearCache(t *testing.T) {
	db := memory.New()
	defer db.Close()
	require.NoError(t, db.PutDamageFunction(model.DamageFunctionDef{
		FunctionCode: "F1", PerilType: "FLOOD", DamageTarget: "PPE", CurveDefinition: `[[0,0],[1,1]]`,
	}))

	reg := NewRegistry(db)
	first, err := reg.FunctionForPeril("FLOOD", "PPE")
	require.NoError(t, err)

	reg.ClearCache()
	second, err := reg.FunctionForPeril("FLOOD", "PPE")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Code, second.Code)
}
