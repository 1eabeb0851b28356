// Package engine bundles the config, store, and decoder an Ingestor or
// Query Orchestrator needs into one explicit handle, so callers never
// reach for package-level globals — every entry point takes the engine
// it should run against.
package engine

import (
	"context"

	"github.com/shazoom-engine/shazoom/internal/audio"
	"github.com/shazoom-engine/shazoom/internal/config"
	"github.com/shazoom-engine/shazoom/internal/ingest"
	"github.com/shazoom-engine/shazoom/internal/query"
	"github.com/shazoom-engine/shazoom/internal/store"
)

// Engine is the fingerprinting system's single composition root.
type Engine struct {
	Config  *config.Config
	Store   store.FingerprintStore
	Decoder audio.Decoder

	ingestor     *ingest.Ingestor
	orchestrator *query.Orchestrator
}

// New builds an Engine from its three collaborators plus the directory
// where normalized PCM sidecars are written at ingest time.
func New(cfg *config.Config, st store.FingerprintStore, decoder audio.Decoder, pcmDir string) *Engine {
	return &Engine{
		Config:       cfg,
		Store:        st,
		Decoder:      decoder,
		ingestor:     ingest.New(decoder, st, cfg, pcmDir),
		orchestrator: query.New(decoder, st, cfg),
	}
}

func (e *Engine) Ingest(ctx context.Context, sourcePath, movieID, language string) (ingest.Result, error) {
	return e.ingestor.Ingest(ctx, sourcePath, movieID, language)
}

func (e *Engine) Query(ctx context.Context, fragmentPath string, trackID *int64) (query.Result, error) {
	return e.orchestrator.Query(ctx, fragmentPath, trackID)
}
