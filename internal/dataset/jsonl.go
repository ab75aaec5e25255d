package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// maxLineSize bounds a single JSONL line (1MB is far beyond any address).
const maxLineSize = 1 << 20

// ReadExamples reads token-level training examples from a JSONL file.
// Blank lines are skipped; a malformed line is a hard error because a
// silently dropped example would skew training.
func ReadExamples(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	var examples []Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ex Example
		if err := json.Unmarshal(line, &ex); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid example: %w", path, lineNum, err)
		}
		if len(ex.Tokens) != len(ex.NerTags) {
			return nil, fmt.Errorf("%s:%d: %d tokens but %d tags", path, lineNum, len(ex.Tokens), len(ex.NerTags))
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	return examples, nil
}

// ReadTagged reads entity-annotated records from a JSONL file. Unlike
// ReadExamples, malformed lines are logged and skipped so one bad LLM
// annotation does not sink a whole conversion batch.
func ReadTagged(path string) ([]TaggedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tagged file %s: %w", path, err)
	}
	defer f.Close()

	var records []TaggedRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec TaggedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Warn("%s:%d: skipping malformed record: %v", path, lineNum, err)
			continue
		}
		if rec.Address == "" {
			logger.Warn("%s:%d: skipping record without address", path, lineNum)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tagged file %s: %w", path, err)
	}

	return records, nil
}

// WriteExamples writes token-level examples as JSONL, one example per line.
// The writer flushes per line so partial output survives interruption.
func WriteExamples(path string, examples []Example) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, ex := range examples {
		data, err := json.Marshal(ex)
		if err != nil {
			return fmt.Errorf("failed to marshal example: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write output %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output %s: %w", path, err)
	}
	return f.Sync()
}
