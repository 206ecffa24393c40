package factory_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/recon-engine/factory"
	"github.com/warp/recon-engine/recon"
)

func TestParseConfigLayer_FullDocument(t *testing.T) {
	// GIVEN: A complete tenant settings document as exported upstream
	// WHEN: Parsed
	// THEN: Every field lands in the ConfigLayer with the right types

	doc := []byte(`{
		"id": "1330",
		"settings": {
			"admin_fee_percentage": "15%",
			"prorate_share_method": "RSF",
			"square_footage": "2,500",
			"base_year": "2022",
			"base_year_amount": "10000.00",
			"cap_settings": {
				"cap_percentage": "5%",
				"cap_type": "previous_year",
				"stop_amount": "2.50"
			},
			"gl_inclusions": {"cam": ["510000-799999"]},
			"gl_exclusions": {"cam": ["MR515000", ""], "base": ["520000"]},
			"admin_fee_overrides": [
				{"priority": 1, "match": "MR515000", "percentage": "10%"}
			],
			"capital_expenses": [
				{"id": "roof", "description": "Roof replacement",
				 "amount": "50000.00", "year": 2023, "amortization_years": 5}
			],
			"lease_start": "2024-04-01"
		}
	}`)

	layer, err := factory.ParseConfigLayer(doc)
	require.NoError(t, err)

	require.NotNil(t, layer.AdminFeePercent)
	assert.Equal(t, "15%", layer.AdminFeePercent.String())
	assert.Equal(t, recon.ProrateRSF, layer.ProrationMethod)
	require.NotNil(t, layer.SquareFeet)
	assert.True(t, layer.SquareFeet.Equal(decimal.NewFromInt(2500)), "thousands separators are stripped")
	require.NotNil(t, layer.BaseYear)
	assert.Equal(t, 2022, *layer.BaseYear)
	require.NotNil(t, layer.BaseYearAmount)
	assert.Equal(t, "10000.00", layer.BaseYearAmount.String())

	require.NotNil(t, layer.CapPercent)
	assert.Equal(t, "5%", layer.CapPercent.String())
	assert.Equal(t, recon.CapPreviousYear, layer.CapType)
	require.NotNil(t, layer.StopAmountPerSqFt)
	assert.Equal(t, "2.50", layer.StopAmountPerSqFt.String())

	assert.Equal(t, []recon.AccountRule{"510000-799999"}, layer.Inclusions[recon.ListCAM])
	assert.Equal(t, []recon.AccountRule{"MR515000"}, layer.Exclusions[recon.ListCAM], "empty entries dropped")
	assert.Equal(t, []recon.AccountRule{"520000"}, layer.Exclusions[recon.ListBase])

	require.Len(t, layer.AdminFeeOverrides, 1)
	assert.Equal(t, "10%", layer.AdminFeeOverrides[0].Percent.String())

	require.Len(t, layer.CapitalExpenses, 1)
	assert.Equal(t, 5, layer.CapitalExpenses[0].AmortYears)

	require.NotNil(t, layer.LeaseStart)
	assert.Equal(t, 2024, layer.LeaseStart.Year())
	assert.Nil(t, layer.LeaseEnd)
}

func TestParseConfigLayer_EmptyStringsStayUnset(t *testing.T) {
	doc := []byte(`{"settings": {
		"admin_fee_percentage": "",
		"prorate_share_method": "",
		"base_year": "",
		"cap_settings": {"cap_percentage": "", "override_cap_year": ""}
	}}`)

	layer, err := factory.ParseConfigLayer(doc)
	require.NoError(t, err)

	assert.Nil(t, layer.AdminFeePercent)
	assert.Empty(t, layer.ProrationMethod)
	assert.Nil(t, layer.BaseYear)
	assert.Nil(t, layer.CapPercent)
	assert.Nil(t, layer.CapOverrideYear)
}

func TestParseConfigLayer_BadValuesAreErrors(t *testing.T) {
	_, err := factory.ParseConfigLayer([]byte(`{"settings": {"base_year": "twenty"}}`))
	assert.Error(t, err)

	_, err = factory.ParseConfigLayer([]byte(`{"settings": {"admin_fee_percentage": "lots"}}`))
	assert.Error(t, err)

	_, err = factory.ParseConfigLayer([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseGLLines_ConvertsAmountsAndPeriods(t *testing.T) {
	data := []byte(`[
		{"property_id": "ELW", "period": "202403", "gl_account": "MR510200",
		 "description": "Landscaping", "net_amount": "1,234.56"},
		{"property_id": "ELW", "period": "202404", "gl_account": "510200",
		 "net_amount": "-200.00"}
	]`)

	lines, err := factory.ParseGLLines(data)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, recon.PropertyID("ELW"), lines[0].Property)
	assert.Equal(t, "202403", lines[0].Period.String())
	assert.Equal(t, "1234.56", lines[0].Amount.String())
	assert.True(t, lines[1].Amount.IsNegative())
}

func TestParseGLLines_MalformedLinesAreDataErrors(t *testing.T) {
	// GIVEN: Lines with an unparsable period and an unparsable amount
	// THEN: Each import fails with a classifiable data error carrying
	//       the offending account

	_, err := factory.ParseGLLines([]byte(`[{"property_id": "ELW", "period": "2024-03", "gl_account": "510200", "net_amount": "1"}]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, recon.ErrData))
	assert.True(t, recon.IsRecoverable(err))

	_, err = factory.ParseGLLines([]byte(`[{"property_id": "ELW", "period": "202403", "gl_account": "510200", "net_amount": "lots"}]`))
	require.Error(t, err)

	var derr *recon.DataError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, recon.GLAccount("510200"), derr.Account)
	assert.Equal(t, "202403", derr.Period.String())
}

func TestParseOverrides_DuplicateKeysRejected(t *testing.T) {
	data := []byte(`[
		{"tenant_id": "1330", "property_id": "ELW", "year": 2024,
		 "mode": "replace", "override_amount": "99000"},
		{"tenant_id": "1330", "property_id": "ELW", "year": 2024,
		 "mode": "adjustment", "override_amount": "-500"}
	]`)

	_, err := factory.ParseOverrides(data)
	assert.Error(t, err, "two competing overrides cannot both be right")
}

func TestParseOverrides_BuildsTheEngineMap(t *testing.T) {
	data := []byte(`[{"tenant_id": "1330", "property_id": "ELW", "year": 2024,
		"mode": "replace", "override_amount": "99,000.00", "description": "settlement"}]`)

	out, err := factory.ParseOverrides(data)
	require.NoError(t, err)

	key := recon.OverrideKey{Tenant: "1330", Property: "ELW", Year: 2024}
	require.Contains(t, out, key)
	assert.Equal(t, recon.OverrideReplace, out[key].Mode)
	assert.Equal(t, "99000.00", out[key].Amount.String())
}
