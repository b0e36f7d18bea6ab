package config

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ConfigHelper 配置助手函数

// LoadFromFileWithEnv 从文件和环境变量加载配置
func LoadFromFileWithEnv[T any](filePath string, envPrefix string, target *T) error {
	manager := NewManager()

	// 先加载默认值
	if defaultConfig, ok := any(*target).(interface{ Default() T }); ok {
		manager.AddLoader(NewDefaultLoader(defaultConfig.Default()))
	}

	// 然后加载文件配置
	manager.AddLoader(NewFileLoader(filePath))

	// 最后加载环境变量配置
	manager.AddLoader(NewEnvLoader(envPrefix))

	return manager.Load(target)
}

// LoadConfigWithWatch 加载配置并监听文件变化
func LoadConfigWithWatch[T any](filePath string, envPrefix string, target *T, onChange func(*T) error) error {
	// 首次加载配置
	if err := LoadFromFileWithEnv(filePath, envPrefix, target); err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}

	// 如果文件存在，设置文件监听
	if fileExists(filePath) {
		watcher := NewFileWatcher(filePath, 5*time.Second) // 5秒检查一次

		watcher.OnChange(func(changedFile string) error {
			fmt.Printf("Config file changed: %s, reloading...\n", changedFile)

			newConfig := new(T)
			if err := LoadFromFileWithEnv(filePath, envPrefix, newConfig); err != nil {
				return fmt.Errorf("failed to reload config: %w", err)
			}

			// 更新目标配置
			*target = *newConfig

			// 调用变更回调
			if onChange != nil {
				return onChange(target)
			}

			return nil
		})

		// 在新的goroutine中启动监听
		go func() {
			if err := watcher.Start(context.Background()); err != nil {
				fmt.Printf("Failed to start config watcher: %v\n", err)
			}
		}()
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
