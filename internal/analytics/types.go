package analytics

// LabelCount is one bar of a ranked chart.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryShare is one slice of the category pie.
type CategoryShare struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Share    float64 `json:"share"`
}

// PeriodCount is one point of a time series. Period is "2006-01-02" for
// daily series and an ISO week label such as "2024-W03" for weekly ones.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// CategorySeries is the weekly trend for one category.
type CategorySeries struct {
	Category string        `json:"category"`
	Total    int           `json:"total"`
	Points   []PeriodCount `json:"points"`
}

// DayActivity pairs the searches and watches recorded on one day.
type DayActivity struct {
	Date     string `json:"date"`
	Searches int    `json:"searches"`
	Watches  int    `json:"watches"`
}

// FilterOptions lists the values offered by the dashboard dropdowns.
type FilterOptions struct {
	Channels   []string `json:"channels"`
	Categories []string `json:"categories"`
	MinDate    string   `json:"min_date,omitempty"`
	MaxDate    string   `json:"max_date,omitempty"`
}

// Dashboard bundles every chart for one filter selection.
type Dashboard struct {
	Empty            bool             `json:"empty"`
	WatchCount       int              `json:"watch_count"`
	SearchCount      int              `json:"search_count"`
	TopChannels      []LabelCount     `json:"top_channels"`
	TopSearches      []LabelCount     `json:"top_searches"`
	Categories       []CategoryShare  `json:"categories"`
	Daily            []PeriodCount    `json:"daily"`
	Weekly           []PeriodCount    `json:"weekly"`
	CategoryOverTime []CategorySeries `json:"category_over_time"`
	SearchVsWatch    []DayActivity    `json:"search_vs_watch"`
}
