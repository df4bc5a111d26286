package profile

import "github.com/tjaddison/govbiz-ai-sub002/internal/mlevel"

// embeddingMetadataFromSummary extracts the per-level key lists an mlevel
// Summary produced into the flattened shape match.scoreSemantic expects,
// mirroring opportunity.Processor's embedSegments/processAttachments.
func embeddingMetadataFromSummary(summary mlevel.Summary) EmbeddingMetadata {
	var meta EmbeddingMetadata
	if keys := summary.Keys[mlevel.LevelFullDocument]; len(keys) > 0 {
		meta.SummaryKey = keys[0]
	}
	meta.SectionKeys = summary.Keys[mlevel.LevelSection]
	meta.ChunkKeys = summary.Keys[mlevel.LevelChunk]
	return meta
}
