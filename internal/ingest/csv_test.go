package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busfare-compare/internal/models"
)

func timeout(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(2 * time.Second)
}

const fullHeader = "Bus ID,Bus Name,Bus Type,Departure Time,Arrival Time,Journey Duration,Lowest Price(INR),Highest Price(INR),Starting Point,Destination,Starting Point Parent,Destination Point Parent"

func TestReadListingsFullRow(t *testing.T) {
	csv := fullHeader + "\n" +
		"1,ABC Travels,AC Sleeper,21:30,05:45,8h 15m,500,700,Kashmere Gate,Manali Bus Stand,Delhi,Manali\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	l := listings[0]
	assert.Equal(t, int64(1), l.BusID)
	assert.Equal(t, "ABC Travels", l.BusName)
	assert.Equal(t, "AC Sleeper", l.BusType)
	assert.Equal(t, "21:30", l.DepartureTime)
	assert.Equal(t, "05:45", l.ArrivalTime)
	assert.Equal(t, "8h 15m", l.JourneyDuration)
	assert.Equal(t, 500.0, l.LowestPrice)
	assert.Equal(t, 700.0, l.HighestPrice)
	assert.Equal(t, "Kashmere Gate", l.StartingPoint)
	assert.Equal(t, "Manali Bus Stand", l.Destination)
	assert.Equal(t, "Delhi", l.OriginParent)
	assert.Equal(t, "Manali", l.DestParent)
}

func TestReadListingsDefaults(t *testing.T) {
	csv := fullHeader + "\n" +
		",,,,,,,,,,,\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	l := listings[0]
	assert.Equal(t, int64(0), l.BusID)
	assert.Equal(t, "Unknown", l.BusName)
	assert.Equal(t, "Standard", l.BusType)
	assert.Equal(t, "--:--", l.DepartureTime)
	assert.Equal(t, "--:--", l.ArrivalTime)
	assert.Equal(t, "0h 0m", l.JourneyDuration)
	assert.Equal(t, 0.0, l.LowestPrice)
	assert.Equal(t, 0.0, l.HighestPrice)
	assert.Equal(t, "Unknown", l.StartingPoint)
	assert.Equal(t, "Unknown", l.Destination)
	assert.Equal(t, "Unknown", l.OriginParent)
	assert.Equal(t, "Unknown", l.DestParent)
}

func TestReadListingsUnparsableNumbers(t *testing.T) {
	csv := fullHeader + "\n" +
		"abc,Zing Bus,Seater,08:00,14:00,6h 0m,free,N/A,Pune Station,Panaji,Pune,Goa\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, int64(0), listings[0].BusID)
	assert.Equal(t, 0.0, listings[0].LowestPrice)
	assert.Equal(t, 0.0, listings[0].HighestPrice)
}

func TestReadListingsNegativePriceDefaultsToZero(t *testing.T) {
	csv := fullHeader + "\n" +
		"5,Neo Travels,Seater,08:00,14:00,6h 0m,-100,-50,Pune Station,Panaji,Pune,Goa\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, 0.0, listings[0].LowestPrice)
	assert.Equal(t, 0.0, listings[0].HighestPrice)
}

func TestReadListingsPriceWithThousandsSeparator(t *testing.T) {
	csv := fullHeader + "\n" +
		"2,IntrCity,AC Sleeper,20:00,09:30,13h 30m,\"1,250\",\"1,800\",Majestic,Dadar,Bangalore,Mumbai\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, 1250.0, listings[0].LowestPrice)
	assert.Equal(t, 1800.0, listings[0].HighestPrice)
}

func TestReadListingsHeaderOnly(t *testing.T) {
	listings, err := ReadListings(strings.NewReader(fullHeader + "\n"))
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.NotNil(t, listings)
}

func TestReadListingsEmptyInput(t *testing.T) {
	_, err := ReadListings(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadListingsUnrecognizedColumnsIgnored(t *testing.T) {
	csv := "Bus Name,Mystery Column,Starting Point Parent,Destination Point Parent\n" +
		"ABC Travels,whatever,Delhi,Manali\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, "ABC Travels", listings[0].BusName)
	assert.Equal(t, "Delhi", listings[0].OriginParent)
	assert.Equal(t, "Manali", listings[0].DestParent)
	// Missing recognized columns fall back to defaults
	assert.Equal(t, "Standard", listings[0].BusType)
	assert.Equal(t, 0.0, listings[0].LowestPrice)
}

func TestReadListingsShortRow(t *testing.T) {
	// Row with fewer fields than the header still normalizes
	csv := fullHeader + "\n" +
		"7,ABC Travels\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, int64(7), listings[0].BusID)
	assert.Equal(t, "ABC Travels", listings[0].BusName)
	assert.Equal(t, "Unknown", listings[0].OriginParent)
}

// brokenReader serves its data, then fails every subsequent Read the way a
// capped or dropped request body does
type brokenReader struct {
	data []byte
	err  error
	pos  int
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.pos < len(r.data) {
		n := copy(p, r.data[r.pos:])
		r.pos += n
		return n, nil
	}
	return 0, r.err
}

func TestReadListingsPersistentReadErrorAborts(t *testing.T) {
	readErr := errors.New("http: request body too large")
	r := &brokenReader{
		data: []byte(fullHeader + "\n" +
			"1,ABC Travels,Seater,08:00,14:00,6h 0m,300,450,A,B,Pune,Goa\n"),
		err: readErr,
	}

	done := make(chan struct{})
	var err error
	go func() {
		_, err = ReadListings(r)
		close(done)
	}()

	select {
	case <-done:
	case <-timeout(t):
		t.Fatal("ReadListings did not return on a persistent read error")
	}

	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
}

func TestReadListingsBadQuotingRowSkipped(t *testing.T) {
	csv := fullHeader + "\n" +
		"1,\"ABC \"Travels,Seater,08:00,14:00,6h 0m,300,450,A,B,Pune,Goa\n" +
		"2,Zing Bus,Seater,09:00,15:00,6h 0m,350,500,A,B,Pune,Goa\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Zing Bus", listings[0].BusName)
}

func TestMergeListings(t *testing.T) {
	a := []models.Listing{{BusID: 1, BusName: "A1"}, {BusID: 2, BusName: "A2"}}
	b := []models.Listing{{BusID: 1, BusName: "B1"}}

	merged := MergeListings(a, b)

	require.Len(t, merged, 3)
	assert.Equal(t, "A1", merged[0].BusName)
	assert.Equal(t, "A2", merged[1].BusName)
	assert.Equal(t, "B1", merged[2].BusName)

	empty := MergeListings()
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestResequenceIDs(t *testing.T) {
	listings := []models.Listing{
		{BusID: 7, BusName: "A"},
		{BusID: 7, BusName: "B"},
		{BusID: 1, BusName: "C"},
	}

	ResequenceIDs(listings)

	assert.Equal(t, int64(1), listings[0].BusID)
	assert.Equal(t, int64(2), listings[1].BusID)
	assert.Equal(t, int64(3), listings[2].BusID)
	// Order is untouched
	assert.Equal(t, "A", listings[0].BusName)
}

func TestReadListingsBlankLinesSkipped(t *testing.T) {
	csv := fullHeader + "\n\n" +
		"1,ABC Travels,Seater,08:00,14:00,6h 0m,300,450,A,B,Pune,Goa\n\n"

	listings, err := ReadListings(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}
