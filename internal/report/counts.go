// Package report renders run results: console tables and PNG charts.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ClusterCount is the number of rows assigned to one cluster.
type ClusterCount struct {
	Cluster int
	Count   int
}

// ClusterCounts tallies assignments, most populated cluster first.
// Equal counts are ordered by cluster id.
func ClusterCounts(assignments []int) []ClusterCount {
	tally := make(map[int]int)
	for _, c := range assignments {
		tally[c]++
	}

	counts := make([]ClusterCount, 0, len(tally))
	for id, n := range tally {
		counts = append(counts, ClusterCount{Cluster: id, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Cluster < counts[j].Cluster
	})
	return counts
}

// WriteClusterCounts prints counts as a two-column table headed "Cluster".
func WriteClusterCounts(w io.Writer, counts []ClusterCount) error {
	idWidth, countWidth := 1, 1
	for _, c := range counts {
		idWidth = max(idWidth, len(strconv.Itoa(c.Cluster)))
		countWidth = max(countWidth, len(strconv.Itoa(c.Count)))
	}

	if _, err := fmt.Fprintln(w, "Cluster"); err != nil {
		return err
	}
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "%-*d    %*d\n", idWidth, c.Cluster, countWidth, c.Count); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "Name: count, dtype: int64")
	return err
}
