package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/config"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/storage"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

func runFetch(c *cli.Context) error {
	cfg := config.Load()
	log := logger.Component("cli")

	if !cfg.Storage.Enabled {
		return fmt.Errorf("object storage is not enabled (set STORAGE_ENABLED=true)")
	}

	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}

	prefix := c.String("prefix")
	dest := c.String("dest")

	objects, err := client.ListObjects(c.Context, prefix)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		log.Info().Str("prefix", prefix).Msg("no objects found")
		return nil
	}

	for _, object := range objects {
		destPath := filepath.Join(dest, filepath.Base(object.Key))
		if err := client.DownloadObject(c.Context, object.Key, destPath); err != nil {
			return fmt.Errorf("download %s: %w", object.Key, err)
		}
		log.Info().
			Str("key", object.Key).
			Str("dest", destPath).
			Int64("size", object.Size).
			Msg("downloaded")
	}

	log.Info().Int("objects", len(objects)).Msg("fetch completed")
	return nil
}
