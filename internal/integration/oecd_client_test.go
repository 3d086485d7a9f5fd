package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wideScores = `,country_code,country_name,region_code,region_name,jurisdiction,01Jan2020,02Jan2020,03Jan2020
0,AUS,Australia,,,NAT_TOTAL,0,,2
1,AUS,Australia,AUS_NSW,New South Wales,STATE_TOTAL,1,1,1
2,CAN,Canada,,,NAT_TOTAL,1,1,
3,BRA,Brazil,,,NAT_TOTAL,0,0,0
`

func TestParseWideScores(t *testing.T) {
	scores, err := ParseWideScores([]byte(wideScores))
	require.NoError(t, err)
	require.Len(t, scores, 3, "sub-national rows are skipped")

	assert.Equal(t, "Australia", scores[0].Country)
	assert.Equal(t, []string{"0", "", "2"}, scores[0].Scores)
	assert.Equal(t, day(2020, 1, 2), scores[0].Dates[1])
	assert.Equal(t, "Canada", scores[1].Country)
}

func TestParseWideScoresLegacyLayout(t *testing.T) {
	scores, err := ParseWideScores([]byte(",country_code,country_name,01Mar2020\n0,NZL,New Zealand,3\n"))
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, []string{"3"}, scores[0].Scores)
}

func TestParseWideScoresWithoutCountryColumn(t *testing.T) {
	_, err := ParseWideScores([]byte("a,b\n1,2\n"))
	assert.Error(t, err)
}

func TestFetchStayHomeScoresWithMock(t *testing.T) {
	server := mockServer("text/csv", wideScores)
	defer server.Close()

	client := NewOECDClient(server.URL, "", 0, testLogger())
	scores, err := client.FetchStayHomeScores(context.Background())
	require.NoError(t, err)
	assert.Len(t, scores, 3)
}

func TestFetchMemberCountriesWithMock(t *testing.T) {
	page := `<html><body>
<table>
  <tr><th>Country</th><th>Date</th></tr>
  <tr><td>Country</td><td>Date of deposit</td></tr>
  <tr><td> AUSTRALIA </td><td>7 June 1971</td></tr>
  <tr><td>CANADA</td><td>10 April 1961</td></tr>
  <tr><td>UNITED
      KINGDOM</td><td>2 May 1961</td></tr>
  <tr><td>Canada</td><td>duplicate</td></tr>
  <tr><td></td><td>footnote</td></tr>
</table>
</body></html>`
	server := mockServer("text/html", page)
	defer server.Close()

	client := NewOECDClient("", server.URL, 0, testLogger())
	countries, err := client.FetchMemberCountries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AUSTRALIA", "CANADA", "UNITED KINGDOM"}, countries)
}
