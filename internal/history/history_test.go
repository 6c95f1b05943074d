package history

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

const watchExport = `[
  {
    "header": "YouTube",
    "title": "Watched Go concurrency patterns",
    "titleUrl": "https://www.youtube.com/watch?v=f6kdp27TYZs",
    "subtitles": [{"name": "Google for Developers", "url": "https://www.youtube.com/channel/UC_x5"}],
    "time": "2024-03-01T10:15:30.123Z",
    "products": ["YouTube"],
    "activityControls": ["YouTube watch history"],
    "details": [{"name": "From YouTube"}]
  },
  {
    "header": "YouTube",
    "title": "Watched a video that has been removed",
    "time": "2024-03-02T08:00:00Z",
    "products": ["YouTube"],
    "activityControls": ["YouTube watch history"]
  },
  {
    "header": "YouTube",
    "title": "Watched Buy now",
    "titleUrl": "https://www.youtube.com/watch?v=adadadadad1",
    "subtitles": [{"name": "Some Brand", "url": "https://www.youtube.com/channel/UCbrand"}],
    "time": "2024-03-03T12:00:00Z",
    "products": ["YouTube"],
    "activityControls": ["Web & App Activity", "YouTube watch history"],
    "details": [{"name": "From Google Ads"}]
  }
]`

// --- Decode ---

func TestDecode_WatchExport(t *testing.T) {
	raw, err := Decode(strings.NewReader(watchExport))
	require.NoError(t, err)
	require.Len(t, raw, 3)

	assert.Equal(t, "YouTube", *raw[0].Header)
	assert.Equal(t, "https://www.youtube.com/watch?v=f6kdp27TYZs", *raw[0].TitleURL)
	assert.Equal(t, []Subtitle{{Name: strp("Google for Developers"), URL: strp("https://www.youtube.com/channel/UC_x5")}}, raw[0].Subtitles)
	assert.Nil(t, raw[1].TitleURL)
	assert.Nil(t, raw[1].Subtitles)
	assert.Equal(t, []string{"Web & App Activity", "YouTube watch history"}, raw[2].ActivityControls)
}

func TestDecode_NullFieldsAreAbsent(t *testing.T) {
	raw, err := Decode(strings.NewReader(`[{"title": null, "subtitles": null}]`))
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Nil(t, raw[0].Title)
	assert.Nil(t, raw[0].Subtitles)
}

func TestDecode_UnexpectedFieldNamed(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"title": "a"}, {"title": "b", "bogus": 1}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
	assert.Contains(t, err.Error(), `"bogus"`)
}

func TestDecode_LenientIgnoresUnknownFields(t *testing.T) {
	raw, err := Decoder{Strict: false}.Decode(strings.NewReader(`[{"title": "b", "bogus": 1}]`))
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "b", *raw[0].Title)
}

func TestDecode_LocationInfosAccepted(t *testing.T) {
	raw, err := Decode(strings.NewReader(`[{"title": "Searched for maps", "locationInfos": [{"name": "At this area"}]}]`))
	require.NoError(t, err)
	assert.Len(t, raw, 1)
}

func TestDecode_WrongFieldTypeNamed(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"title": "a", "subtitles": "not a list"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0")
	assert.Contains(t, err.Error(), `"subtitles"`)
}

func TestDecode_NotAnArray(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"title": "a"}`))
	assert.Error(t, err)
}

func TestDecode_NullDocument(t *testing.T) {
	records, err := Decode(strings.NewReader("null"))
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "not a JSON array")
}

func TestDecode_EmptyArray(t *testing.T) {
	records, err := Decode(strings.NewReader("[]"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecode_TrailingContent(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"title": "a"}] [{"title": "b"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing content")
}

func TestDecode_RecordNotAnObject(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"title": "a"}, 42]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
}

// --- Normalize ---

func TestNormalize_OnePerInputInOrder(t *testing.T) {
	raw, err := Decode(strings.NewReader(watchExport))
	require.NoError(t, err)

	rows := Normalize(raw)
	require.Len(t, rows, len(raw))
	for i := range raw {
		assert.Equal(t, raw[i].Title, rows[i].Title, "row %d", i)
	}
}

func TestNormalize_Fields(t *testing.T) {
	raw, err := Decode(strings.NewReader(watchExport))
	require.NoError(t, err)
	rows := Normalize(raw)

	first := rows[0]
	assert.Equal(t, "https://www.youtube.com/watch?v=f6kdp27TYZs", *first.TitleURL)
	assert.Equal(t, "YouTube watch history", first.ActivityControls)
	assert.Equal(t, "YouTube", first.Products)
	assert.Equal(t, "From YouTube", *first.SearchDetail)
	assert.Equal(t, "Google for Developers", *first.ChannelName)
	assert.Equal(t, "https://www.youtube.com/channel/UC_x5", *first.ChannelURL)
	require.NotNil(t, first.Time)
	assert.True(t, first.Time.Equal(time.Date(2024, 3, 1, 10, 15, 30, 123000000, time.UTC)))

	second := rows[1]
	assert.Nil(t, second.TitleURL)
	assert.Nil(t, second.SearchDetail)
	assert.Nil(t, second.ChannelName)
	assert.Nil(t, second.ChannelURL)
	assert.Nil(t, second.Description)

	assert.Equal(t, "Web & App Activity, YouTube watch history", rows[2].ActivityControls)
}

func TestNormalize_EmptyListsBecomeEmptyStrings(t *testing.T) {
	rows := Normalize([]RawActivityRecord{{Title: strp("x"), Products: []string{}}})
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Products)
	assert.Equal(t, "", rows[0].ActivityControls)
}

func TestNormalize_BadTimestampBecomesNil(t *testing.T) {
	rows := Normalize([]RawActivityRecord{
		{Title: strp("bad"), Time: strp("yesterday-ish")},
		{Title: strp("missing")},
		{Title: strp("good"), Time: strp("2023-12-31T23:59:59Z")},
	})
	require.Len(t, rows, 3)
	assert.Nil(t, rows[0].Time)
	assert.Nil(t, rows[1].Time)
	require.NotNil(t, rows[2].Time)
	assert.Equal(t, 2023, rows[2].Time.Year())
}

// --- ExtractVideoID ---

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.youtube.com/watch?v=abc123&t=5", "abc123"},
		{"https://www.youtube.com/watch?v=abc123", "abc123"},
		{"https://youtu.be/xyz789?si=share", "xyz789"},
		{"https://youtu.be/xyz789&feature=x", "xyz789"},
		{"https://youtu.be/xyz789", "xyz789"},
		{"https://www.google.com/search?q=cats", ""},
		{"https://www.youtube.com/results?search_query=cats", ""},
		{"not a url at all %%%", ""},
		{"https://youtu.be/", ""},
		{"", ""},
	}

	for _, tc := range tests {
		got := ExtractVideoIDString(tc.url)
		assert.Equal(t, tc.expected, got, "id for %q", tc.url)
		// Same input, same output.
		assert.Equal(t, got, ExtractVideoIDString(tc.url))
	}
}

func TestExtractVideoID_Nil(t *testing.T) {
	assert.Nil(t, ExtractVideoID(nil))
	assert.Nil(t, ExtractVideoID(strp("")))
	assert.Nil(t, ExtractVideoID(strp("https://www.google.com/search?q=cats")))
	require.NotNil(t, ExtractVideoID(strp("https://youtu.be/xyz789?si=abc")))
	assert.Equal(t, "xyz789", *ExtractVideoID(strp("https://youtu.be/xyz789?si=abc")))
}

// --- Filters ---

func TestFilterWatch_KeepsOnlyChannelNonAd(t *testing.T) {
	raw, err := Decode(strings.NewReader(watchExport))
	require.NoError(t, err)

	kept := FilterWatch(Normalize(raw))
	require.Len(t, kept, 1)
	assert.Equal(t, "Watched Go concurrency patterns", *kept[0].Title)
}

func TestFilterWatch_DropsUnnamedChannel(t *testing.T) {
	raw, err := Decode(strings.NewReader(`[
  {"title": "Watched a", "subtitles": [{"url": "https://www.youtube.com/channel/UCa"}]},
  {"title": "Watched b", "subtitles": [{"name": null, "url": "https://www.youtube.com/channel/UCb"}]},
  {"title": "Watched c", "subtitles": [{"name": "Chan"}]}
]`))
	require.NoError(t, err)

	rows := Normalize(raw)
	assert.Nil(t, rows[0].ChannelName)
	assert.Equal(t, "https://www.youtube.com/channel/UCa", *rows[0].ChannelURL)
	assert.Nil(t, rows[1].ChannelName)
	assert.Nil(t, rows[2].ChannelURL)

	kept := FilterWatch(rows)
	require.Len(t, kept, 1)
	assert.Equal(t, "Chan", *kept[0].ChannelName)
}

func TestNormalize_DetailWithoutName(t *testing.T) {
	rows := Normalize([]RawActivityRecord{{Title: strp("Watched x"), Details: []Detail{{}}}})
	assert.Nil(t, rows[0].SearchDetail)
}

func TestFilterWatch_Idempotent(t *testing.T) {
	raw, err := Decode(strings.NewReader(watchExport))
	require.NoError(t, err)

	once := FilterWatch(Normalize(raw))
	twice := FilterWatch(once)
	assert.Equal(t, once, twice)
}

func TestFilterSearch_StripsPrefix(t *testing.T) {
	rows := FilterSearch([]NormalizedRecord{
		{Title: strp("Searched for cats")},
		{Title: strp("Visited Searched for")},
		{Title: nil},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, "cats", *rows[0].Title)
	assert.Equal(t, "Visited Searched for", *rows[1].Title)
	assert.Nil(t, rows[2].Title)
}

func TestFilterSearch_DoesNotMutateInput(t *testing.T) {
	in := []NormalizedRecord{{Title: strp("Searched for cats")}}
	_ = FilterSearch(in)
	assert.Equal(t, "Searched for cats", *in[0].Title)
}

func TestFilterSearch_AdRule(t *testing.T) {
	rows := FilterSearch([]NormalizedRecord{
		{Title: strp("Searched for cats"), SearchDetail: strp(AdMarker), Description: strp("Sponsored")},
		{Title: strp("Searched for dogs"), SearchDetail: strp(AdMarker)},
		{Title: strp("Searched for birds"), Description: strp("organic")},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "dogs", *rows[0].Title)
	assert.Equal(t, "birds", *rows[1].Title)
}

func TestFilterSearch_Idempotent(t *testing.T) {
	in := []NormalizedRecord{
		{Title: strp("Searched for cats")},
		{Title: strp("Searched for ads"), SearchDetail: strp(AdMarker), Description: strp("x")},
	}
	once := FilterSearch(in)
	assert.Equal(t, once, FilterSearch(once))
}

// --- Builders ---

func TestBuildWatch(t *testing.T) {
	raw, err := Decode(strings.NewReader(watchExport))
	require.NoError(t, err)

	watch := BuildWatch(FilterWatch(Normalize(raw)))
	require.Len(t, watch, 1)
	assert.Equal(t, "f6kdp27TYZs", *watch[0].VideoID)
	assert.Equal(t, "Google for Developers", *watch[0].ChannelName)
	assert.Nil(t, watch[0].CategoryID)
	assert.Nil(t, watch[0].CategoryName)
	assert.Nil(t, watch[0].VideoDescription)
}

func TestBuildSearch(t *testing.T) {
	search := BuildSearch(FilterSearch([]NormalizedRecord{
		{Title: strp("Searched for cats"), TitleURL: strp("https://www.youtube.com/results?search_query=cats")},
		{Title: strp("Watched a clip"), TitleURL: strp("https://www.youtube.com/watch?v=clip01")},
	}))
	require.Len(t, search, 2)

	assert.Equal(t, "cats", *search[0].Title)
	assert.Nil(t, search[0].VideoID)
	assert.False(t, search[0].IsVideo)
	assert.Nil(t, search[0].CategoryGuess)

	assert.Equal(t, "clip01", *search[1].VideoID)
	assert.True(t, search[1].IsVideo)
}
