package history

import "regexp"

var (
	longFormRe  = regexp.MustCompile(`v=([^&]+)`)
	shortLinkRe = regexp.MustCompile(`youtu\.be/([^?&]+)`)
)

// ExtractVideoID returns the catalog video id embedded in a watch or short
// link URL, or nil when there is none.
func ExtractVideoID(url *string) *string {
	if url == nil {
		return nil
	}
	id := ExtractVideoIDString(*url)
	if id == "" {
		return nil
	}
	return &id
}

// ExtractVideoIDString is ExtractVideoID for plain strings; "" means no id.
func ExtractVideoIDString(url string) string {
	if url == "" {
		return ""
	}
	if m := longFormRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := shortLinkRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}
