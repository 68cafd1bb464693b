package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SyncStats накопленная статистика проходов синхронизации
type SyncStats struct {
	TotalSyncs      int       `json:"total_syncs"`
	LastSuccessful  time.Time `json:"last_successful"`
	LastFailed      time.Time `json:"last_failed"`
	TotalUploaded   int       `json:"total_uploaded"`
	TotalErrors     int       `json:"total_errors"`
	AvgSyncDuration float64   `json:"avg_sync_duration"`
}

// StatsStore хранит SyncStats в JSON файле; пустой path - только в памяти
type StatsStore struct {
	mu    sync.Mutex
	path  string
	stats SyncStats
}

func NewStatsStore(path string) (*StatsStore, error) {
	s := &StatsStore{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read sync stats: %w", err)
	}
	if err := json.Unmarshal(data, &s.stats); err != nil {
		return nil, fmt.Errorf("decode sync stats: %w", err)
	}
	return s, nil
}

// Record учитывает завершенный проход
func (s *StatsStore) Record(result *SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalSyncs++
	if result.Success {
		s.stats.LastSuccessful = result.EndTime
	} else {
		s.stats.LastFailed = result.EndTime
	}
	s.stats.TotalUploaded += result.Synced
	s.stats.TotalErrors += result.Failed

	// Обновляем среднюю продолжительность
	if s.stats.AvgSyncDuration == 0 {
		s.stats.AvgSyncDuration = result.Duration.Seconds()
	} else {
		s.stats.AvgSyncDuration = (s.stats.AvgSyncDuration*float64(s.stats.TotalSyncs-1) +
			result.Duration.Seconds()) / float64(s.stats.TotalSyncs)
	}

	return s.save()
}

// Get возвращает копию статистики
func (s *StatsStore) Get() SyncStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Reset обнуляет статистику
func (s *StatsStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = SyncStats{}
	return s.save()
}

// save пишет во временный файл и переименовывает, чтобы не оставить полузаписанный JSON
func (s *StatsStore) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sync stats: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".sync_stats-*")
	if err != nil {
		return fmt.Errorf("write sync stats: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write sync stats: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write sync stats: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write sync stats: %w", err)
	}
	return nil
}
