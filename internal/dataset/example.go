// Package dataset handles the line-delimited JSON datasets used for MGeo
// fine-tuning: reading and writing token-level training examples, deriving
// the label list, and converting entity-annotated records into BIOES
// token records.
package dataset

// Example is one token-level training example: character tokens with one
// BIOES tag each.
type Example struct {
	Tokens  []string `json:"tokens"`
	NerTags []string `json:"ner_tags"`
	Text    string   `json:"text,omitempty"`
}

// TaggedRecord is one entity-annotated address as produced by the annotation
// flywheel. Entity values may hold several spans separated by commas.
type TaggedRecord struct {
	Address  string            `json:"address"`
	Entities map[string]string `json:"entities"`
}
