package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Watcher 配置文件监视器接口
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
	OnChange(callback func(string) error)
}

// FileWatcher 文件监视器
type FileWatcher struct {
	mu       sync.RWMutex
	filePath string
	lastMod  time.Time
	callback func(string) error
	ticker   *time.Ticker
	stopCh   chan struct{}
	started  bool
}

// NewFileWatcher 创建文件监视器
func NewFileWatcher(filePath string, interval time.Duration) *FileWatcher {
	if interval <= 0 {
		interval = 5 * time.Second // 默认5秒检查一次
	}

	return &FileWatcher{
		filePath: filePath,
		ticker:   time.NewTicker(interval),
		stopCh:   make(chan struct{}),
	}
}

// Start 开始监视
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.started {
		return fmt.Errorf("watcher already started")
	}

	// 获取初始修改时间
	if stat, err := os.Stat(fw.filePath); err == nil {
		fw.lastMod = stat.ModTime()
	}

	fw.started = true

	go fw.watch(ctx)
	return nil
}

// Stop 停止监视
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.started {
		return nil
	}

	fw.started = false
	close(fw.stopCh)
	fw.ticker.Stop()

	return nil
}

// OnChange 设置变更回调
func (fw *FileWatcher) OnChange(callback func(string) error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.callback = callback
}

// watch 监视文件变更
func (fw *FileWatcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		case <-fw.ticker.C:
			fw.checkFileChange()
		}
	}
}

// checkFileChange 检查文件变更
func (fw *FileWatcher) checkFileChange() {
	stat, err := os.Stat(fw.filePath)
	if err != nil {
		// 文件不存在或无法访问
		return
	}

	fw.mu.RLock()
	lastMod := fw.lastMod
	callback := fw.callback
	fw.mu.RUnlock()

	if stat.ModTime().After(lastMod) {
		fw.mu.Lock()
		fw.lastMod = stat.ModTime()
		fw.mu.Unlock()

		if callback != nil {
			if err := callback(fw.filePath); err != nil {
				// TODO: 添加日志记录
				fmt.Printf("Config change callback error: %v\n", err)
			}
		}
	}
}
