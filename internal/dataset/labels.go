package dataset

import "sort"

// LabelList returns the sorted set of NER tags appearing across the given
// example sets. The trainer needs the full enumeration before it can build
// the classification head, so train and eval sets are unioned.
func LabelList(sets ...[]Example) []string {
	unique := make(map[string]struct{})
	for _, set := range sets {
		for _, ex := range set {
			for _, tag := range ex.NerTags {
				unique[tag] = struct{}{}
			}
		}
	}

	labels := make([]string, 0, len(unique))
	for tag := range unique {
		labels = append(labels, tag)
	}
	sort.Strings(labels)
	return labels
}
