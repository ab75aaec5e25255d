package address

import (
	"fmt"
	"strings"
)

// ExtractEntities decodes character tokens and BIOES tags into entities
// grouped by type.
//
// Tag scheme: B- opens a multi-character entity, I- continues it, E- closes
// it, S- marks a single-character entity, O is outside any entity. A B- or
// S- tag while an entity is open flushes the open entity first. Stray I-/E-
// tags without an open entity are treated as O.
//
// Parameters:
//   - tokens: Character tokens in original order
//   - tags: BIOES tag per token (same length as tokens)
//
// Returns:
//   - Map from entity type to the entity texts of that type, in order of
//     appearance
//   - Error if tokens and tags have different lengths
func ExtractEntities(tokens, tags []string) (map[string][]string, error) {
	if len(tokens) != len(tags) {
		return nil, fmt.Errorf("token/tag length mismatch: %d tokens, %d tags", len(tokens), len(tags))
	}

	entities := make(map[string][]string)
	var currentType string
	var current []string

	flush := func() {
		if currentType != "" && len(current) > 0 {
			entities[currentType] = append(entities[currentType], strings.Join(current, ""))
		}
		currentType = ""
		current = nil
	}

	for i, tag := range tags {
		token := tokens[i]
		switch {
		case strings.HasPrefix(tag, "B-"), strings.HasPrefix(tag, "S-"):
			flush()
			currentType = tag[2:]
			current = []string{token}
			if strings.HasPrefix(tag, "S-") {
				flush()
			}
		case strings.HasPrefix(tag, "I-") && currentType != "":
			current = append(current, token)
		case strings.HasPrefix(tag, "E-") && currentType != "":
			current = append(current, token)
			flush()
		default:
			flush()
		}
	}
	flush()

	return entities, nil
}

// JoinEntities collapses the grouped entity lists into a flat map, joining
// multiple spans of the same type with ", ". Types in PriorityOrder are
// handled first; any remaining types are appended afterwards.
func JoinEntities(grouped map[string][]string) map[string]string {
	joined := make(map[string]string, len(grouped))
	for _, entityType := range PriorityOrder {
		if values, ok := grouped[entityType]; ok {
			joined[entityType] = strings.Join(values, ", ")
		}
	}
	for entityType, values := range grouped {
		if _, ok := joined[entityType]; !ok {
			joined[entityType] = strings.Join(values, ", ")
		}
	}
	return joined
}
