package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/shazoom-engine/shazoom/internal/engine"
)

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".mp4": true, ".mkv": true,
}

// cmdIngestDir walks dir, ingesting every recognized audio/container file
// under movie_id = the file's base name (without extension) and the
// given language, reporting progress the way directory-scale ingest jobs
// in the pack report it.
func cmdIngestDir(eng *engine.Engine, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: shazoom ingest-dir <dir> <language>")
		return
	}
	dir, language := args[0], args[1]

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if audioExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("error walking %s: %v\n", dir, err)
		return
	}

	if len(paths) == 0 {
		fmt.Println("no recognized audio files found")
		return
	}

	bar := progressbar.Default(int64(len(paths)), "ingesting")
	var failed int

	for _, path := range paths {
		movieID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		result, err := eng.Ingest(context.Background(), path, movieID, language)
		if err != nil {
			failed++
			fmt.Printf("\n  failed %s: %v\n", path, err)
		} else {
			fmt.Printf("\n  ingested %s as track %d (%d fingerprints)\n", movieID, result.TrackID, result.HashCount)
		}
		bar.Add(1)
	}

	fmt.Printf("\ndone: %d ingested, %d failed\n", len(paths)-failed, failed)
}
