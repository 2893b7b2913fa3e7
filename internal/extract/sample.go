package extract

import (
	"context"
	"time"

	"github.com/maruel/factsheet/internal/rows"
)

// Sample is an Extractor returning a fixed batch after Delay, regardless of
// the document.
type Sample struct {
	Delay time.Duration
}

// Extract implements Extractor.
func (s *Sample) Extract(ctx context.Context, _ Document) ([]rows.Input, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SampleRows(), nil
}

// SampleRows returns the seed batch used by Sample.
func SampleRows() []rows.Input {
	return []rows.Input{
		{Section: "Nanocarrier", Key: "Type", Value: "WPI-CHI-HA nanoparticles", Confidence: 0.95, SourceSpan: rows.Ptr("p. 3, Fig. 1")},
		{Section: "Nanocarrier", Key: "Preparation method", Value: "Layer-by-layer electrostatic deposition", Confidence: 0.87, SourceSpan: rows.Ptr("p. 4, Section 2.3")},
		{Section: "Formulation", Key: "Drug", Value: "Curcumin", Confidence: 0.93, SourceSpan: rows.Ptr("Abstract")},
		{Section: "Formulation", Key: "WPI:CHI ratio", Value: "1:1 (w/w)", Confidence: 0.78, SourceSpan: rows.Ptr("Table 1")},
		{Section: "Formulation", Key: "Encapsulation efficiency", Value: "89.4%", Confidence: 0.9, SourceSpan: rows.Ptr("Table 2")},
		{Section: "Characterization", Key: "Particle size", Value: "182 nm", Confidence: 0.91, SourceSpan: rows.Ptr("Table 2")},
		{Section: "Characterization", Key: "Zeta potential", Value: "+32.5 mV", Confidence: 0.88, SourceSpan: rows.Ptr("Table 2")},
		{Section: "Characterization", Key: "PDI", Value: "0.21", Confidence: 0.72},
		{Section: "Release", Key: "Cumulative release (24 h, pH 7.4)", Value: "64%", Confidence: 0.81, SourceSpan: rows.Ptr("p. 7, Fig. 5")},
	}
}
