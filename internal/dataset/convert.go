package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// entitySpan is a located entity occurrence inside the source address.
type entitySpan struct {
	start      int // rune offset
	end        int // exclusive
	entityType string
}

// ConvertTagged turns an entity-annotated address into a character-level
// BIOES token example.
//
// Each entity value (comma-separated values are independent spans) is located
// by substring search in the address; ranges already attributed to an earlier
// entity are skipped so no character carries two tags. Located spans are
// sorted by start offset, characters between spans are tagged O, and each
// span is tagged S- (single character) or B-/I-/E-.
//
// Values that cannot be found in the address are logged and dropped rather
// than failing the record.
func ConvertTagged(rec TaggedRecord) (Example, error) {
	if rec.Address == "" {
		return Example{}, fmt.Errorf("record has no address")
	}

	addr := []rune(rec.Address)
	used := make([]bool, len(addr))

	var spans []entitySpan
	for _, entityType := range sortedTypes(rec.Entities) {
		for _, value := range strings.Split(rec.Entities[entityType], ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			sp, ok := findUnclaimed(addr, used, []rune(value))
			if !ok {
				logger.Warn("entity %q (%s) not found in address %q", value, entityType, rec.Address)
				continue
			}
			sp.entityType = entityType
			spans = append(spans, sp)
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	ex := Example{Text: rec.Address}
	pos := 0
	for _, sp := range spans {
		for ; pos < sp.start; pos++ {
			ex.Tokens = append(ex.Tokens, string(addr[pos]))
			ex.NerTags = append(ex.NerTags, "O")
		}
		length := sp.end - sp.start
		for i := 0; i < length; i++ {
			ex.Tokens = append(ex.Tokens, string(addr[sp.start+i]))
			switch {
			case length == 1:
				ex.NerTags = append(ex.NerTags, "S-"+sp.entityType)
			case i == 0:
				ex.NerTags = append(ex.NerTags, "B-"+sp.entityType)
			case i == length-1:
				ex.NerTags = append(ex.NerTags, "E-"+sp.entityType)
			default:
				ex.NerTags = append(ex.NerTags, "I-"+sp.entityType)
			}
		}
		pos = sp.end
	}
	for ; pos < len(addr); pos++ {
		ex.Tokens = append(ex.Tokens, string(addr[pos]))
		ex.NerTags = append(ex.NerTags, "O")
	}

	return ex, nil
}

// ConvertFile converts a tagged JSONL file into a token-level JSONL file.
// Returns the number of converted examples.
func ConvertFile(inputPath, outputPath string) (int, error) {
	records, err := ReadTagged(inputPath)
	if err != nil {
		return 0, err
	}

	examples := make([]Example, 0, len(records))
	for i, rec := range records {
		ex, err := ConvertTagged(rec)
		if err != nil {
			logger.Warn("record %d: %v", i+1, err)
			continue
		}
		examples = append(examples, ex)
	}

	if err := WriteExamples(outputPath, examples); err != nil {
		return 0, err
	}
	return len(examples), nil
}

// sortedTypes gives a deterministic iteration order over the entity map.
func sortedTypes(entities map[string]string) []string {
	types := make([]string, 0, len(entities))
	for t := range entities {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// findUnclaimed locates the first occurrence of value whose range is fully
// unclaimed, claims it, and returns the span.
func findUnclaimed(addr []rune, used []bool, value []rune) (entitySpan, bool) {
	if len(value) == 0 || len(value) > len(addr) {
		return entitySpan{}, false
	}
search:
	for start := 0; start+len(value) <= len(addr); start++ {
		for i, r := range value {
			if addr[start+i] != r {
				continue search
			}
		}
		end := start + len(value)
		overlap := false
		for i := start; i < end; i++ {
			if used[i] {
				overlap = true
				break
			}
		}
		if overlap {
			start = end - 1
			continue
		}
		for i := start; i < end; i++ {
			used[i] = true
		}
		return entitySpan{start: start, end: end}, true
	}
	return entitySpan{}, false
}
