package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/ports"
)

var classificationHeader = []string{"ct", "topics", "topics_en", "summary", "summary_en", "source"}

// ClassificationTable reads and writes the per-period classification records.
// The table lives under a single key as CSV with JSON-array topic cells and
// is rewritten whole on every save, so a crash loses at most one item.
type ClassificationTable struct {
	store ports.ArtifactStore
}

// NewClassificationTable wraps the artifact store with the table codec.
func NewClassificationTable(store ports.ArtifactStore) *ClassificationTable {
	return &ClassificationTable{store: store}
}

// Load returns all records keyed by print number. A period that was never
// classified yields an empty map.
func (t *ClassificationTable) Load(ctx context.Context, period int) (map[int]domain.ClassificationRecord, error) {
	records := make(map[int]domain.ClassificationRecord)

	raw, err := t.store.Get(ctx, TopicsKey(period))
	if errors.Is(err, ports.ErrNotFound) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load classification table: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse classification table: %w", err)
	}

	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "ct" {
			continue
		}
		if len(row) < 6 {
			continue
		}
		ct, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		records[ct] = domain.ClassificationRecord{
			CT:        ct,
			TopicsCS:  decodeTopicsCell(row[1]),
			TopicsEN:  decodeTopicsCell(row[2]),
			SummaryCS: row[3],
			SummaryEN: row[4],
			Source:    row[5],
		}
	}
	return records, nil
}

// Save rewrites the whole table, ordered by print number.
func (t *ClassificationTable) Save(ctx context.Context, period int, records map[int]domain.ClassificationRecord) error {
	cts := make([]int, 0, len(records))
	for ct := range records {
		cts = append(cts, ct)
	}
	sort.Ints(cts)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(classificationHeader); err != nil {
		return fmt.Errorf("write classification header: %w", err)
	}
	for _, ct := range cts {
		rec := records[ct]
		row := []string{
			strconv.Itoa(rec.CT),
			encodeTopicsCell(rec.TopicsCS),
			encodeTopicsCell(rec.TopicsEN),
			rec.SummaryCS,
			rec.SummaryEN,
			rec.Source,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write classification row ct=%d: %w", ct, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush classification table: %w", err)
	}

	if err := t.store.Put(ctx, TopicsKey(period), buf.Bytes()); err != nil {
		return fmt.Errorf("save classification table: %w", err)
	}
	return nil
}

func encodeTopicsCell(topics []string) string {
	if len(topics) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(topics)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// decodeTopicsCell accepts the JSON-array format and, for tables written by
// earlier versions, a single bare label per cell.
func decodeTopicsCell(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if strings.HasPrefix(cell, "[") {
		var parsed []string
		if err := json.Unmarshal([]byte(cell), &parsed); err == nil {
			topics := parsed[:0]
			for _, topic := range parsed {
				if topic != "" {
					topics = append(topics, topic)
				}
			}
			if len(topics) == 0 {
				return nil
			}
			return topics
		}
	}
	return []string{cell}
}
