package storage

import "time"

// Stats holds aggregate statistics about the imported history.
type Stats struct {
	WatchRows     int64
	SearchRows    int64
	EnrichedRows  int64 // watch rows with catalog metadata
	SearchVideos  int64 // search rows that point at a video
	OldestWatch   time.Time
	NewestWatch   time.Time
	TopChannels   []ChannelCount
	HasImportData bool
}

// ChannelCount pairs a channel with its watch count.
type ChannelCount struct {
	Channel string
	Count   int64
}
