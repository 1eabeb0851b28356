package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shazoom-engine/shazoom/internal/audio"
	"github.com/shazoom-engine/shazoom/internal/config"
	"github.com/shazoom-engine/shazoom/internal/engine"
	"github.com/shazoom-engine/shazoom/internal/store"
)

func main() {
	logger := newLogger()
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cfg, err := config.Load(os.Getenv("SHAZOOM_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	st, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to store", "err", err)
		os.Exit(1)
	}

	eng := engine.New(cfg, st, audio.NewFFmpegDecoder(), "./data/pcm")

	switch os.Args[1] {
	case "ingest":
		cmdIngest(eng, os.Args[2:])
	case "ingest-dir":
		cmdIngestDir(eng, os.Args[2:])
	case "query":
		cmdQuery(eng, os.Args[2:])
	case "record":
		cmdRecord(eng)
	case "stats":
		cmdStats(st)
	case "list":
		cmdList(st)
	case "clean":
		cmdClean(st)
	default:
		fmt.Printf("unknown command: %s\n", os.Args[1])
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  shazoom ingest <file> <movie_id> <language>   Ingest a track")
	fmt.Println("  shazoom ingest-dir <dir> <language>           Ingest every audio file in a directory")
	fmt.Println("  shazoom query <file>                          Match a fragment against the store")
	fmt.Println("  shazoom record                                Record 5 seconds from the mic and match")
	fmt.Println("  shazoom stats                                 Show store statistics")
	fmt.Println("  shazoom list                                  List ingested tracks")
	fmt.Println("  shazoom clean                                 Remove all tracks and fingerprints")
}

func cmdIngest(eng *engine.Engine, args []string) {
	if len(args) < 3 {
		fmt.Println("usage: shazoom ingest <file> <movie_id> <language>")
		return
	}
	path, movieID, language := args[0], args[1], args[2]

	result, err := eng.Ingest(context.Background(), path, movieID, language)
	if err != nil {
		slog.Error("ingest failed", "path", path, "err", err)
		fmt.Printf("ingest failed: %v\n", err)
		return
	}

	fmt.Printf("ingested track %d: %d fingerprints over %.1fs\n", result.TrackID, result.HashCount, result.DurationSec)
	if result.Retried {
		fmt.Println("note: ingest required a relaxed-threshold retry to meet the minimum hash count")
	}
}

func cmdQuery(eng *engine.Engine, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: shazoom query <file>")
		return
	}

	result, err := eng.Query(context.Background(), args[0], nil)
	if err != nil {
		slog.Error("query failed", "path", args[0], "err", err)
		fmt.Printf("no match: %v\n", err)
		return
	}

	printMatch(result.TrackID, result.RawOffset, result.RefinedOffset, result.RawConfidence, result.CorrConfidence, result.Score, result.TotalChecked)
}

func cmdRecord(eng *engine.Engine) {
	fmt.Println("recording 5 seconds...")
	path, err := recordFragment(5)
	if err != nil {
		slog.Error("recording failed", "err", err)
		fmt.Printf("recording failed: %v\n", err)
		return
	}
	defer os.Remove(path)

	result, err := eng.Query(context.Background(), path, nil)
	if err != nil {
		fmt.Printf("no match: %v\n", err)
		return
	}
	printMatch(result.TrackID, result.RawOffset, result.RefinedOffset, result.RawConfidence, result.CorrConfidence, result.Score, result.TotalChecked)
}

func printMatch(trackID int64, rawOffset, refinedOffset, rawConfidence, corrConfidence, score float64, totalChecked int) {
	fmt.Println("=== MATCH FOUND ===")
	fmt.Printf("track id:       %d\n", trackID)
	fmt.Printf("raw offset:     %.2fs (confidence %.2f%%)\n", rawOffset, rawConfidence)
	fmt.Printf("refined offset: %.2fs (corr confidence %.3f)\n", refinedOffset, corrConfidence)
	fmt.Printf("score:          %.0f / %d hashes checked\n", score, totalChecked)
}

func cmdStats(st *store.PostgresStore) {
	stats, err := st.Stats(context.Background())
	if err != nil {
		fmt.Printf("error fetching stats: %v\n", err)
		return
	}
	fmt.Println("store statistics")
	fmt.Printf("  tracks:       %d\n", stats.TotalTracks)
	fmt.Printf("  fingerprints: %d\n", stats.TotalFingerprints)
}

func cmdList(st *store.PostgresStore) {
	tracks, err := st.ListTracks(context.Background())
	if err != nil {
		fmt.Printf("error fetching tracks: %v\n", err)
		return
	}
	if len(tracks) == 0 {
		fmt.Println("no tracks ingested")
		return
	}
	fmt.Printf("%d tracks:\n", len(tracks))
	for _, t := range tracks {
		duration := "unknown"
		if t.Duration != nil {
			duration = fmt.Sprintf("%.1fs", *t.Duration)
		}
		fmt.Printf("  [%d] %s (%s) - %s\n", t.ID, t.MovieID, t.Language, duration)
	}
}

func cmdClean(st *store.PostgresStore) {
	fmt.Print("this will delete ALL tracks and fingerprints. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)
	if response != "yes" {
		fmt.Println("cancelled")
		return
	}
	if err := st.DeleteAllTracks(context.Background()); err != nil {
		fmt.Printf("error cleaning store: %v\n", err)
		return
	}
	fmt.Println("store cleaned")
}

func newLogger() *slog.Logger {
	logDir := "./data/logs"
	_ = os.MkdirAll(logDir, 0o755)

	rotator := newRotatingWriter(filepath.Join(logDir, "shazoom.log"))
	handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler)
}
