package profile

import "net/url"

// SafeKey percent-encodes query for use as a key segment in the activity
// store's derived-node paths. `.` is not reserved by net/url's escaper but
// the store forbids it in key segments, so it is escaped explicitly (§6).
func SafeKey(query string) string {
	escaped := url.QueryEscape(query)
	out := make([]byte, 0, len(escaped))
	for i := 0; i < len(escaped); i++ {
		if escaped[i] == '.' {
			out = append(out, '%', '2', 'E')
			continue
		}
		out = append(out, escaped[i])
	}
	return string(out)
}
