package sparkify

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/goccy/go-json"
	"golang.org/x/xerrors"
)

const maxLineSize = 16 * 1024 * 1024

// Parser parses a source object into raw records.
type Parser func(context.Context, io.Reader) ([][]byte, error)

// JSONLinesParser provides a parser for newline-delimited JSON.
// Each non-blank line becomes one record.
func JSONLinesParser() Parser {
	return func(_ context.Context, r io.Reader) ([][]byte, error) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)

		lines := [][]byte{}
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}

			lines = append(lines, append([]byte(nil), line...))
		}

		if err := sc.Err(); err != nil {
			return nil, xerrors.Errorf("failed to scan lines: %w", err)
		}

		return lines, nil
	}
}

func decodeLines[T any](lines [][]byte) ([]T, error) {
	records := make([]T, len(lines))

	for i, line := range lines {
		if err := json.Unmarshal(line, &records[i]); err != nil {
			return nil, xerrors.Errorf("failed to decode line %d: %w", i+1, err)
		}
	}

	return records, nil
}
