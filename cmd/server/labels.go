package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/bluefin-ops/healthdeck/internal/models"
)

// loadSeverityLabels reads a code->label mapping from a YAML file, e.g.
//
//	1: Critical
//	2: Warning
//	3: Info
//	4: Low
func loadSeverityLabels(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read severity labels file: %w", err)
	}

	var labels map[int]string
	if err := yaml.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse severity labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("severity labels file %s defines no labels", path)
	}

	return labels, nil
}

// watchSeverityLabels reloads the mapping whenever the file changes, so
// label edits apply without a restart. The watch is on the directory
// because editors typically replace the file rather than write in place.
func watchSeverityLabels(ctx context.Context, path string, severity *models.SeverityLevels) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				labels, err := loadSeverityLabels(path)
				if err != nil {
					// Keep the previous mapping on a bad edit.
					log.Printf("warning: severity labels reload failed: %v", err)
					continue
				}
				severity.Replace(labels)
				log.Printf("severity labels reloaded from %s (%d labels)", path, len(labels))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("warning: severity labels watcher error: %v", err)
			}
		}
	}()

	return nil
}
