package enricher

import (
	"keyword-enricher/pkg/model"
)

// Summary holds the headline numbers of a run, computed over reported values only
type Summary struct {
	Keywords          int     `json:"keywords" yaml:"keywords"`
	VolumeKeywords    int     `json:"volume_keywords" yaml:"volume_keywords"`
	TotalSearchVolume int64   `json:"total_search_volume" yaml:"total_search_volume"`
	AvgSearchVolume   float64 `json:"avg_search_volume" yaml:"avg_search_volume"`
	CPCKeywords       int     `json:"cpc_keywords" yaml:"cpc_keywords"`
	AvgCPC            float64 `json:"avg_cpc" yaml:"avg_cpc"`
}

// Summarize aggregates unique keyword records. Volume is SearchVolume,
// or GlobalVolume when the run had no Ads data for the keyword.
func Summarize(records map[string]*model.MetricRecord) Summary {
	var (
		s        Summary
		cpcTotal float64
	)

	for _, rec := range records {
		if rec == nil {
			continue
		}
		s.Keywords++

		volume := rec.SearchVolume
		if volume == nil {
			volume = rec.GlobalVolume
		}
		if volume != nil {
			s.VolumeKeywords++
			s.TotalSearchVolume += *volume
		}

		if rec.CPC != nil {
			s.CPCKeywords++
			cpcTotal += *rec.CPC
		}
	}

	if s.VolumeKeywords > 0 {
		s.AvgSearchVolume = float64(s.TotalSearchVolume) / float64(s.VolumeKeywords)
	}
	if s.CPCKeywords > 0 {
		s.AvgCPC = cpcTotal / float64(s.CPCKeywords)
	}
	return s
}
