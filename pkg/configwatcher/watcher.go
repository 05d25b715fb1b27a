package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/pkg/logger"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigReloader 配置重新加载成功后的回调
type ConfigReloader func(cfg *config.Config)

const debounce = time.Second

// WatchConfig 监听配置目录中的 config.yaml，写入后防抖 1 秒再重新加载。
// 监听目录而非文件，以兼容编辑器先写临时文件再 rename 的保存方式。
func WatchConfig(ctx context.Context, configDir string, reloaders ...ConfigReloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	absDir, err := filepath.Abs(configDir)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve config dir: %w", err)
	}

	if err := watcher.Add(absDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go loop(ctx, watcher, absDir, reloaders)
	return nil
}

func loop(ctx context.Context, watcher *fsnotify.Watcher, dir string, reloaders []ConfigReloader) {
	defer watcher.Close()

	target := filepath.Join(dir, "config.yaml")

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				// 防抖处理
				timer.Reset(debounce)
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(dir)
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("mode", newCfg.Server.Mode))
			for _, reload := range reloaders {
				reload(newCfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
