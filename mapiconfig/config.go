// Package mapiconfig loads mapi.Options from a YAML file, with an optional
// file-watcher for hot-reload.
package mapiconfig

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mapidb/mapi-go"
)

// Config is the on-disk shape of a pool's connection settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	PoolSize int `yaml:"pool_size"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`

	Schema                string `yaml:"schema"`
	Role                  string `yaml:"role"`
	TimeZoneOffsetMinutes int    `yaml:"time_zone_offset_minutes"`

	Name string `yaml:"name"`
}

// Options converts c into a mapi.Options value. Zero fields are left zero;
// mapi applies its own defaults on Dial/StartPool.
func (c Config) Options() mapi.Options {
	return mapi.Options{
		Host:                  c.Host,
		Port:                  c.Port,
		Database:              c.Database,
		Username:              c.Username,
		Password:              c.Password,
		PoolSize:              c.PoolSize,
		ConnectTimeout:        c.ConnectTimeout,
		ReadTimeout:           c.ReadTimeout,
		SendTimeout:           c.SendTimeout,
		Schema:                c.Schema,
		Role:                  c.Role,
		TimeZoneOffsetMinutes: c.TimeZoneOffsetMinutes,
		Name:                  c.Name,
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Watcher watches a config file for changes and calls the callback with the
// newly parsed Config on every write.
type Watcher struct {
	path     string
	callback func(*Config)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopCh   chan struct{}
}

// Watch starts watching path, invoking onChange with a fresh *Config every
// time the file is written. The returned Watcher must be Closed to release
// the underlying fsnotify watch.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	cw := &Watcher{path: path, callback: onChange, watcher: w, stopCh: make(chan struct{})}
	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[mapiconfig] watcher error: %v", err)
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		log.Printf("[mapiconfig] hot-reload failed: %v", err)
		return
	}
	cw.callback(cfg)
}

// Close stops the watcher and releases its fsnotify handle. Satisfies
// io.Closer.
func (cw *Watcher) Close() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}
