package postprocessors

import (
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-pdf/internal/postprocessors/normaliser"
)

// RegisterDefaults adds the stages named by domain.PipelineConfigFor.
func RegisterDefaults(r *Registry) {
	r.Register("normaliser", func(map[string]any) (driven.PostProcessor, error) {
		return normaliser.New(), nil
	})
	r.Register("chunker", buildChunker)
}

// buildChunker reads chunk_size, overlap and strict. Missing keys keep the
// chunker defaults; strict turns an oversized overlap into an error.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option
	if size, ok := intSetting(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := intSetting(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if strict, _ := cfg["strict"].(bool); strict {
		return chunker.NewStrict(opts...)
	}
	return chunker.New(opts...), nil
}

func intSetting(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
