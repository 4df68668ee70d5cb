// Package recall scores search results against ground truth.
package recall

import (
	"fmt"

	"github.com/patrikhermansson/annprep/vecfile"
)

// Hits counts how many of the ground-truth neighbors of one query appear in
// the first k predicted ids. When distances are given, ground-truth ids whose
// distance ties the k-th distance count as part of the top k.
func Hits(predicted, groundTruth []uint32, distances []float32, k int) int {
	if k <= 0 || len(groundTruth) == 0 {
		return 0
	}
	cut := min(k, len(groundTruth))
	if distances != nil && cut > 0 {
		kth := distances[cut-1]
		for cut < len(groundTruth) && distances[cut] == kth {
			cut++
		}
	}

	predSet := make(map[uint32]struct{}, k)
	for _, id := range predicted[:min(k, len(predicted))] {
		predSet[id] = struct{}{}
	}

	seen := make(map[uint32]struct{}, cut)
	correct := 0
	for _, id := range groundTruth[:cut] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := predSet[id]; ok {
			correct++
		}
	}
	return correct
}

// AtK computes recall@k over all queries as a percentage.
func AtK(groundTruth, results *vecfile.Neighbors, k int) (float64, error) {
	if k <= 0 {
		return 0, fmt.Errorf("recall@k needs k > 0, got %d", k)
	}
	if groundTruth.N != results.N {
		return 0, fmt.Errorf("number of queries mismatch: gt %d, result %d", groundTruth.N, results.N)
	}
	if k > results.K {
		return 0, fmt.Errorf("k=%d exceeds the %d results per query", k, results.K)
	}
	if k > groundTruth.K {
		return 0, fmt.Errorf("k=%d exceeds the %d ground-truth neighbors per query", k, groundTruth.K)
	}
	if groundTruth.N == 0 {
		return 0, nil
	}

	total := 0
	for i := 0; i < groundTruth.N; i++ {
		total += Hits(results.Row(i), groundTruth.Row(i), groundTruth.DistanceRow(i), k)
	}
	return float64(total) / float64(groundTruth.N) * (100.0 / float64(k)), nil
}

// Files loads both files and computes recall@k. A k of 0 uses all result columns.
func Files(groundTruthPath, resultsPath string, k int) (float64, int, error) {
	gt, err := vecfile.ReadGroundTruth(groundTruthPath)
	if err != nil {
		return 0, 0, err
	}
	res, err := vecfile.ReadResults(resultsPath)
	if err != nil {
		return 0, 0, err
	}
	if k == 0 {
		k = res.K
	}
	r, err := AtK(gt, res, k)
	return r, k, err
}
