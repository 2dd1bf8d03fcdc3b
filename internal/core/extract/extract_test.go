package extract_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lantern/internal/core/extract"
)

func str(t *testing.T, p *string) string {
	t.Helper()
	require.NotNil(t, p)
	return *p
}

const fullSheet = `Route: 14B
Slang Name: Maple Grove Plaza
Address: 123 Main St
Springfield
IL 62704
Service Days
Mon - Fri
Time Open: 7|00 am
Time Closed
5 PM
Special Notes
Use north lot entrance.
Call ahead.
Salt Info: Eco2 2 bags
`

func TestFields_FullSheet(t *testing.T) {
	f := extract.Fields(fullSheet)

	assert.Equal(t, "14B", str(t, f.Route))
	assert.Equal(t, "Maple Grove Plaza", str(t, f.SiteName))
	assert.Equal(t, "123 Main St", str(t, f.Address))
	assert.Equal(t, "Springfield", str(t, f.City))
	assert.Equal(t, "62704", str(t, f.PostalCode))
	assert.Equal(t, "Mon-Fri", str(t, f.ServiceDays))
	assert.Equal(t, "7:00AM", str(t, f.TimeOpen))
	assert.Equal(t, "5 PM", str(t, f.TimeClosed))
	assert.Equal(t, "Use north lot entrance. Call ahead.", str(t, f.Notes))
	assert.Equal(t, "Eco2", str(t, f.SaltProduct))
	assert.Equal(t, "2", str(t, f.SaltAmount))
	assert.Equal(t, "bags", str(t, f.SaltUnit))
	assert.Nil(t, f.GPSLatitude)
	assert.Nil(t, f.GPSLongitude)
}

func TestFields_LabeledAddress(t *testing.T) {
	f := extract.Fields("Address: 123 Main St\nSpringfield\nIL 62704")

	assert.Equal(t, "123 Main St", str(t, f.Address))
	assert.Equal(t, "Springfield", str(t, f.City))
	assert.Equal(t, "62704", str(t, f.PostalCode))
}

func TestFields_LabeledAddressOnNextLine(t *testing.T) {
	f := extract.Fields("Address\n77 Elm Street\nDayton\nOH 45402\nRoute: 3")

	assert.Equal(t, "77 Elm Street", str(t, f.Address))
	assert.Equal(t, "Dayton", str(t, f.City))
	assert.Equal(t, "45402", str(t, f.PostalCode))
	assert.Equal(t, "3", str(t, f.Route))
}

func TestFields_FallbackStreetLine(t *testing.T) {
	f := extract.Fields("Oak Park Lot\n456 Oak Ave\nLincoln\nNE 68508")

	assert.Equal(t, "456 Oak Ave", str(t, f.Address))
	assert.Equal(t, "Lincoln", str(t, f.City))
	assert.Equal(t, "68508", str(t, f.PostalCode))
	assert.Equal(t, "Oak Park Lot", str(t, f.SiteName))
}

func TestFields_LabelPrecedesStreetLine(t *testing.T) {
	f := extract.Fields("900 Pine Rd\nAddress: 12 Birch Ln\nAurora\nCO 80010")

	assert.Equal(t, "12 Birch Ln", str(t, f.Address))
	assert.Equal(t, "Aurora", str(t, f.City))
}

func TestFields_PostalWithoutStateIsAbsent(t *testing.T) {
	f := extract.Fields("Address: 5 Lake Dr\nMadison\n53703")

	assert.Equal(t, "Madison", str(t, f.City))
	assert.Nil(t, f.PostalCode)
}

func TestFields_CityAndZipLabels(t *testing.T) {
	f := extract.Fields("City: Toledo\nZip Code: 43604-1234")

	assert.Equal(t, "Toledo", str(t, f.City))
	assert.Equal(t, "41234", str(t, f.PostalCode))
}

func TestFields_SpilloverStopsAtAnyLabel(t *testing.T) {
	f := extract.Fields("Special Notes\nGate code 4411\nTime Open: 6 am")

	assert.Equal(t, "Gate code 4411", str(t, f.Notes))
	assert.Equal(t, "6 AM", str(t, f.TimeOpen))
}

func TestFields_SaltBackfill(t *testing.T) {
	f := extract.Fields("Salt Info\nSidewalks only\n3 bags")

	assert.Nil(t, f.SaltProduct)
	assert.Equal(t, "3", str(t, f.SaltAmount))
	assert.Equal(t, "bags", str(t, f.SaltUnit))
}

func TestFields_SaltProductWithBackfilledUnit(t *testing.T) {
	f := extract.Fields("Sidewalk Info: reliable blue\n2.5 scoops")

	assert.Equal(t, "reliable blue", str(t, f.SaltProduct))
	assert.Equal(t, "2.5", str(t, f.SaltAmount))
	assert.Equal(t, "scoops", str(t, f.SaltUnit))
}

func TestFields_SaltWithoutHeadingUsesWholeText(t *testing.T) {
	f := extract.Fields("Front walk\nspread salt 4 bags before 6")

	assert.Equal(t, "salt", str(t, f.SaltProduct))
	assert.Equal(t, "4", str(t, f.SaltAmount))
	assert.Equal(t, "bags", str(t, f.SaltUnit))
}

func TestFields_SingleServiceDay(t *testing.T) {
	f := extract.Fields("Service Days:\nsaturday")

	assert.Equal(t, "Sat", str(t, f.ServiceDays))
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"bar as separator", "7|00 am", ptr("7:00AM")},
		{"colon and spaces", "11:30 p.m.", ptr("11:30PM")},
		{"letter l as one", "l0:l5pm", ptr("10:15PM")},
		{"hour only", "9am", ptr("9 AM")},
		{"unparseable passes through", "dawn", ptr("dawn")},
		{"free text keeps letter l", "Closed", ptr("Closed")},
		{"free text keeps bars", " Call ahead | gate ", ptr("Call ahead | gate")},
		{"blank", " | ", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extract.NormalizeTime(tc.in))
		})
	}
}

func TestFields_FreeTextTimesKeptVerbatim(t *testing.T) {
	f := extract.Fields("Time Open: Closed\nTime Closed: Call ahead | gate")
	assert.Equal(t, "Closed", str(t, f.TimeOpen))
	assert.Equal(t, "Call ahead | gate", str(t, f.TimeClosed))
}

func TestNormalizePostalCode(t *testing.T) {
	assert.Equal(t, "62704", *extract.NormalizePostalCode("IL 62704"))
	assert.Equal(t, "41234", *extract.NormalizePostalCode("43604-1234"))
	assert.Equal(t, "123", *extract.NormalizePostalCode("1-2-3"))
	assert.Nil(t, extract.NormalizePostalCode("none"))
}

func TestFields_TotalOverNoise(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"Address:",
		"Salt Info",
		"Time Open:",
		"Service Days",
		"|||| l l l ::::",
		strings.Repeat("Route\n", 50),
		"\x00\xff\xfe garbage",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { extract.Fields(in) }, "input %q", in)
	}
	empty := extract.Fields("")
	b, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `""`)
}

func TestFields_Idempotent(t *testing.T) {
	a, err := json.Marshal(extract.Fields(fullSheet))
	require.NoError(t, err)
	b, err := json.Marshal(extract.Fields(fullSheet))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func ptr(s string) *string { return &s }
