package flywheel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// DefaultAddressKey is the JSON field holding the address text in
// structured input files.
const DefaultAddressKey = "address"

// TagFile reads addresses from inputPath, labels each one, and appends
// results to outputPath as JSON Lines. Progress is checkpointed next to
// the output file so an interrupted job resumes where it stopped.
//
// Parameters:
//   - ctx: Cancels the batch between addresses
//   - inputPath: .jsonl, .json, or plain text file of addresses
//   - outputPath: Destination JSONL file
//   - addressKey: JSON key holding the address, empty for "address"
//
// Returns:
//   - Number of successfully labeled addresses
//   - Error on I/O failure or cancellation
func (t *Tagger) TagFile(ctx context.Context, inputPath, outputPath, addressKey string) (int, error) {
	if addressKey == "" {
		addressKey = DefaultAddressKey
	}
	addresses, err := LoadAddresses(inputPath, addressKey)
	if err != nil {
		return 0, err
	}
	if len(addresses) == 0 {
		return 0, fmt.Errorf("no addresses found in %s", inputPath)
	}
	logger.Info("Labeling %d addresses from %s", len(addresses), inputPath)

	progressPath := outputPath + ".progress"
	startIndex := readProgress(progressPath)
	if startIndex > 0 {
		if startIndex >= len(addresses) {
			startIndex = 0
		} else {
			logger.Info("Resuming from address %d/%d", startIndex+1, len(addresses))
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if startIndex > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(outputPath, flags, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open output file: %w", err)
	}
	defer out.Close()

	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)

	succeeded := 0
	for i := startIndex; i < len(addresses); i++ {
		if err := ctx.Err(); err != nil {
			return succeeded, err
		}

		result := t.TagAddress(ctx, addresses[i])
		if result.Success {
			succeeded++
		} else {
			logger.Warn("Failed to label %q: %s", result.Address, result.Error)
		}

		if err := encoder.Encode(result); err != nil {
			return succeeded, fmt.Errorf("failed to write result: %w", err)
		}
		writeProgress(progressPath, i+1)

		if t.delay > 0 && i+1 < len(addresses) {
			select {
			case <-time.After(t.delay):
			case <-ctx.Done():
				return succeeded, ctx.Err()
			}
		}
	}

	os.Remove(progressPath)
	logger.Info("Labeled %d/%d addresses, results in %s", succeeded, len(addresses), outputPath)
	return succeeded, nil
}

// LoadAddresses reads an address list from a .jsonl, .json, or plain
// text file. Malformed JSONL lines are logged and skipped.
func LoadAddresses(path, addressKey string) ([]string, error) {
	switch {
	case strings.HasSuffix(path, ".jsonl"):
		return loadAddressesJSONL(path, addressKey)
	case strings.HasSuffix(path, ".json"):
		return loadAddressesJSON(path, addressKey)
	default:
		return loadAddressesText(path)
	}
}

func loadAddressesJSONL(path, addressKey string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	var addresses []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			logger.Warn("Skipping line %d of %s: %v", lineNo, path, err)
			continue
		}
		if addr, ok := record[addressKey].(string); ok && addr != "" {
			addresses = append(addresses, addr)
		} else {
			logger.Warn("Line %d of %s is missing field %q", lineNo, path, addressKey)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return addresses, nil
}

func loadAddressesJSON(path, addressKey string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var addresses []string
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		for _, item := range list {
			switch v := item.(type) {
			case string:
				addresses = append(addresses, v)
			case map[string]any:
				if addr, ok := v[addressKey].(string); ok && addr != "" {
					addresses = append(addresses, addr)
				}
			}
		}
		return addresses, nil
	}

	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	if addr, ok := single[addressKey].(string); ok && addr != "" {
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

func loadAddressesText(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	var addresses []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			addresses = append(addresses, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return addresses, nil
}

func readProgress(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeProgress(path string, index int) {
	if err := os.WriteFile(path, []byte(strconv.Itoa(index)), 0644); err != nil {
		logger.Warn("Failed to write progress file: %v", err)
	}
}
