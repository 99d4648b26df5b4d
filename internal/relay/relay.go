// Package relay fans a signed event out to a set of nostr relays.
package relay

import "strings"

// Union merges the configured relay set with the relays hinted in a zap
// request: normalized (trailing slash stripped), deduplicated, first-seen
// order preserved.
func Union(configured []string, hinted []string) []string {
	merged := make([]string, 0, len(configured)+len(hinted))
	merged = append(merged, configured...)
	merged = append(merged, hinted...)
	return uniqueSlice(cleanUrls(merged))
}

func uniqueSlice(slice []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

func cleanUrls(slice []string) []string {
	list := []string{}
	for _, entry := range slice {
		if strings.HasSuffix(entry, "/") {
			entry = entry[:len(entry)-1]
		}
		list = append(list, entry)
	}
	return list
}
