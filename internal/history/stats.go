package history

import (
	"fmt"
	"math"
)

// ImageStats aggregates recorded runs per base image.
type ImageStats struct {
	BaseImage     string  `json:"base_image"`
	Runs          int     `json:"runs"`
	AvgChanged    float64 `json:"avg_changed_paths"`
	MaxChanged    int     `json:"max_changed_paths"`
	LastGenerated string  `json:"last_generated_on"`
}

// StatsByImage summarizes the history per base image: how often each image
// was analyzed and how much filesystem churn the runs found. Ordered by run
// count, most-analyzed first.
func (s *Store) StatsByImage() ([]ImageStats, error) {
	rows, err := s.conn.Query(
		`SELECT base_image, COUNT(*), AVG(changed_paths), MAX(changed_paths), MAX(generated_on)
		 FROM runs GROUP BY base_image ORDER BY COUNT(*) DESC, base_image`)
	if err != nil {
		return nil, fmt.Errorf("query image stats: %w", err)
	}
	defer rows.Close()

	var stats []ImageStats
	for rows.Next() {
		var st ImageStats
		if err := rows.Scan(&st.BaseImage, &st.Runs, &st.AvgChanged, &st.MaxChanged, &st.LastGenerated); err != nil {
			return nil, fmt.Errorf("scan image stats: %w", err)
		}
		st.AvgChanged = math.Round(st.AvgChanged*10) / 10
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
