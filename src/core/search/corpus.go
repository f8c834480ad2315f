package search

const (
	// DefaultAverageDocumentLength is used when there are no documents to average over.
	DefaultAverageDocumentLength = 100.0
)

// CorpusStats holds the collection statistics BM25 needs. It is computed per search call from the
// candidate set and never cached.
type CorpusStats struct {
	DocumentCount         int
	AverageDocumentLength float64
	// DocumentFrequency maps a token to the number of documents containing it at least once.
	DocumentFrequency map[string]int
}

// ComputeCorpusStats derives statistics from the searchable content of docs.
// An empty set yields DocumentCount 1 and the default average length so downstream division is safe.
func ComputeCorpusStats(docs []Document) CorpusStats {
	stats := CorpusStats{
		DocumentCount:         len(docs),
		AverageDocumentLength: DefaultAverageDocumentLength,
		DocumentFrequency:     make(map[string]int),
	}
	if len(docs) == 0 {
		stats.DocumentCount = 1
		return stats
	}

	totalLength := 0
	for _, doc := range docs {
		tokens := Tokenize(doc.SearchableContent())
		totalLength += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			stats.DocumentFrequency[token]++
		}
	}
	stats.AverageDocumentLength = float64(totalLength) / float64(len(docs))

	return stats
}
