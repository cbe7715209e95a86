package units

import (
	"testing"

	"finmodel/internal/calc"
	"finmodel/internal/model"
	"finmodel/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCatalog(t *testing.T) *memory.Store {
	t.Helper()
	db := memory.New()
	require.NoError(t, db.PutUnitDefinition(model.UnitDefinition{
		UnitCode: "TONNE", UnitCategory: "MASS", ConversionType: model.ConversionStatic,
		StaticConversionFactor: 1, BaseUnitCode: "TONNE",
	}))
	require.NoError(t, db.PutUnitDefinition(model.UnitDefinition{
		UnitCode: "KG", UnitCategory: "MASS", ConversionType: model.ConversionStatic,
		StaticConversionFactor: 0.001, BaseUnitCode: "TONNE",
	}))
	require.NoError(t, db.PutUnitDefinition(model.UnitDefinition{
		UnitCode: "KWH", UnitCategory: "ENERGY", ConversionType: model.ConversionStatic,
		StaticConversionFactor: 1, BaseUnitCode: "KWH",
	}))
	return db
}

func TestConverterStaticRoundTrip(t *testing.T) {
	db := staticCatalog(t)
	defer db.Close()

	c, err := NewConverter(db, nil)
	require.NoError(t, err)

	ctx := calc.NewContext("ACME", 1, 0)

	assert.True(t, c.IsValidUnit("KG"))
	assert.False(t, c.IsTimeVarying("KG"))
	assert.False(t, c.IsValidUnit("NOT_A_UNIT"))

	base, err := c.ToBaseUnit(1000, "KG", ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, base, 1e-9)

	back, err := c.FromBaseUnit(1, "KG", ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, back, 1e-9)
}

func TestConverterConvertSameCategory(t *testing.T) {
	db := staticCatalog(t)
	defer db.Close()

	c, err := NewConverter(db, nil)
	require.NoError(t, err)
	ctx := calc.NewContext("ACME", 1, 0)

	v, err := c.Convert(5, "TONNE", "KG", ctx)
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, v, 1e-9)

	v, err = c.Convert(42, "KG", "KG", ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestConverterRejectsCrossCategoryConversion(t *testing.T) {
	db := staticCatalog(t)
	defer db.Close()

	c, err := NewConverter(db, nil)
	require.NoError(t, err)
	ctx := calc.NewContext("ACME", 1, 0)

	_, err = c.Convert(1, "KG", "KWH", ctx)
	require.Error(t, err)
}

func TestConverterTimeVaryingRequiresResolver(t *testing.T) {
	db := memory.New()
	defer db.Close()
	require.NoError(t, db.PutUnitDefinition(model.UnitDefinition{
		UnitCode: "EUR", UnitCategory: "CURRENCY", ConversionType: model.ConversionTimeVarying,
		BaseUnitCode: "USD",
	}))

	c, err := NewConverter(db, nil)
	require.NoError(t, err)
	ctx := calc.NewContext("ACME", 1, 0)

	_, err = c.ToBaseUnit(100, "EUR", ctx)
	require.Error(t, err)
}

type stubResolver struct{ rate float64 }

func (s stubResolver) GetValue(code string, ctx calc.Context) (float64, error) { return s.rate, nil }

func TestConverterTimeVaryingDelegatesToResolver(t *testing.T) {
	db := memory.New()
	defer db.Close()
	require.NoError(t, db.PutUnitDefinition(model.UnitDefinition{
		UnitCode: "EUR", UnitCategory: "CURRENCY", ConversionType: model.ConversionTimeVarying,
		BaseUnitCode: "USD",
	}))

	c, err := NewConverter(db, stubResolver{rate: 1.1})
	require.NoError(t, err)
	ctx := calc.NewContext("ACME", 1, 0)

	base, err := c.ToBaseUnit(100, "EUR", ctx)
	require.NoError(t, err)
	assert.InDelta(t, 110.0, base, 1e-9)
}
