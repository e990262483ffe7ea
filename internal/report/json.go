package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/utkarsh5026/nbench/internal/config"
	"github.com/utkarsh5026/nbench/internal/cpu"
	"github.com/utkarsh5026/nbench/internal/suite"
)

// Document is the machine-readable form of a run.
type Document struct {
	System              cpu.Description    `json:"system"`
	Config              *config.Config     `json:"config"`
	MinIterationSeconds float64            `json:"min_iteration_seconds"`
	Results             []suite.Outcome    `json:"results"`
	Indexes             []IndexEntry       `json:"indexes"`
	Stats               map[string]Summary `json:"stats,omitempty"`
}

// IndexEntry is a suite.Index with its reference machine spelled out.
type IndexEntry struct {
	Name     string   `json:"name"`
	Baseline string   `json:"baseline"`
	Members  []string `json:"members"`
	Value    float64  `json:"value"`
}

// NewDocument assembles a Document. Stats are included when cfg.AllStats is
// set.
func NewDocument(d cpu.Description, cfg *config.Config, minIterSecs float64, outcomes []suite.Outcome, indexes []suite.Index) Document {
	doc := Document{
		System:              d,
		Config:              cfg,
		MinIterationSeconds: minIterSecs,
		Results:             outcomes,
		Indexes:             make([]IndexEntry, 0, len(indexes)),
	}
	for _, idx := range indexes {
		baseline := "bytemark"
		if idx.Baseline == suite.BaselineLinux {
			baseline = "linux"
		}
		doc.Indexes = append(doc.Indexes, IndexEntry{
			Name:     idx.Name,
			Baseline: baseline,
			Members:  idx.Members,
			Value:    idx.Value,
		})
	}
	if cfg != nil && cfg.AllStats {
		doc.Stats = make(map[string]Summary, len(outcomes))
		for _, o := range outcomes {
			doc.Stats[o.Kernel] = Summarize(o.Runs)
		}
	}
	return doc
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize to JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
