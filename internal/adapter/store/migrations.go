package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"docrag/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// ComputeConfigHash hashes the settings that decide whether two vectors are
// comparable. Collections built with different hashes must never mix.
func ComputeConfigHash(provider, model string, dimension int, metric domain.Metric) string {
	relevant := struct {
		Provider  string        `json:"provider"`
		Model     string        `json:"model"`
		Dimension int           `json:"dimension"`
		Metric    domain.Metric `json:"metric"`
	}{
		Provider:  provider,
		Model:     model,
		Dimension: dimension,
		Metric:    metric,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:4])
}

// NewCollectionInfo fingerprints a collection. The name is the base name
// suffixed with the config hash, so changing the embedding model or metric
// opens a fresh collection instead of polluting the old one.
func NewCollectionInfo(base, provider, model string, dimension int, metric domain.Metric) domain.CollectionInfo {
	return domain.CollectionInfo{
		Name:           fmt.Sprintf("%s-%s", base, ComputeConfigHash(provider, model, dimension, metric)),
		Provider:       provider,
		EmbeddingModel: model,
		Dimension:      dimension,
		Metric:         metric,
		SchemaVersion:  CurrentSchemaVersion,
		CreatedAt:      time.Now().UTC(),
	}
}

// checkCompatible compares the stored fingerprint with the one the caller
// wants and returns the info to keep using. A zero stored dimension is
// adopted from want.
func checkCompatible(stored, want domain.CollectionInfo) (domain.CollectionInfo, error) {
	if stored.SchemaVersion > CurrentSchemaVersion {
		return stored, fmt.Errorf("%w: collection %q was written by a newer schema (v%d > v%d)",
			domain.ErrIncompatibleCollection, stored.Name, stored.SchemaVersion, CurrentSchemaVersion)
	}

	var reason string
	switch {
	case stored.Provider != want.Provider:
		reason = fmt.Sprintf("provider %q, configured %q", stored.Provider, want.Provider)
	case stored.EmbeddingModel != want.EmbeddingModel:
		reason = fmt.Sprintf("embedding model %q, configured %q", stored.EmbeddingModel, want.EmbeddingModel)
	case stored.Metric != want.Metric:
		reason = fmt.Sprintf("metric %q, configured %q", stored.Metric, want.Metric)
	case stored.Dimension != 0 && want.Dimension != 0 && stored.Dimension != want.Dimension:
		reason = fmt.Sprintf("dimension %d, configured %d", stored.Dimension, want.Dimension)
	}
	if reason != "" {
		return stored, fmt.Errorf("%w: collection %q was built with %s; use a different collection or reset it",
			domain.ErrIncompatibleCollection, stored.Name, reason)
	}

	if stored.Dimension == 0 {
		stored.Dimension = want.Dimension
	}
	return stored, nil
}
