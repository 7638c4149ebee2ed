// Package snapshot は記事一覧スナップショットの永続化と世代間マージを提供する。
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hitoshi/blogpulse/internal/model"
)

// Store はスナップショットの読み書きを抽象化する。
type Store interface {
	Load() (model.Snapshot, error)
	Save(snap model.Snapshot) error
}

// FileStore は JSON ファイルとしてスナップショットを保存する Store 実装。
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore は FileStore を生成する。
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load は前回のスナップショットを読み込む。ファイルが存在しない、
// または内容が壊れている場合は空のスナップショットを返して続行する。
func (s *FileStore) Load() (model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("前回のスナップショットが存在しません",
				slog.String("path", s.path))
			return model.EmptySnapshot(), nil
		}
		return model.Snapshot{}, fmt.Errorf("スナップショットの読み込みに失敗しました: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("スナップショットの内容が不正なため初期化します",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return model.EmptySnapshot(), nil
	}
	return snap, nil
}

// Save はスナップショットを整形済み JSON として書き出す。一時ファイルに
// 書いてからリネームすることで途中失敗による破損を避ける。
func (s *FileStore) Save(snap model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("スナップショットのエンコードに失敗しました: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	tmp := s.path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("一時ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("スナップショットの置き換えに失敗しました: %w", err)
	}
	s.logger.Info("スナップショットを保存しました",
		slog.String("path", s.path),
		slog.Int("posts", len(snap.Posts)))
	return nil
}
