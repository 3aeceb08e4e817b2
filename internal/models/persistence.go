package models

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// SaveDir is the root directory for saved games.
var SaveDir = ".saves"

const (
	metaFile  = "meta.yaml"
	worldFile = "world.yaml.zst"
)

// SaveMeta is the small uncompressed header written next to each save.
type SaveMeta struct {
	GameID  string    `yaml:"game_id"`
	Company string    `yaml:"company"`
	Turn    int       `yaml:"turn"`
	Phase   Phase     `yaml:"phase"`
	SavedAt time.Time `yaml:"saved_at"`
}

// Save writes w under SaveDir/name.
func (w *World) Save(name string) error {
	dir := filepath.Join(SaveDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	meta := SaveMeta{
		GameID:  w.GameID,
		Company: w.Company.Name,
		Turn:    w.Calendar.Turn,
		Phase:   w.Calendar.Phase,
		SavedAt: time.Now().UTC(),
	}
	metaData, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), metaData, 0644); err != nil {
		return err
	}

	worldData, err := EncodeWorld(w)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(worldData); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, worldFile), buf.Bytes(), 0644)
}

// LoadSession reads the world saved under SaveDir/name.
func LoadSession(name string) (*World, error) {
	dir := filepath.Join(SaveDir, name)

	f, err := os.Open(filepath.Join(dir, worldFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", name, err)
	}
	w, err := DecodeWorld(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", worldFile, err)
	}
	return w, nil
}

// EncodeWorld is the YAML form of w used by saves and journal branches.
func EncodeWorld(w *World) ([]byte, error) {
	return yaml.Marshal(w)
}

// DecodeWorld parses the output of EncodeWorld.
func DecodeWorld(data []byte) (*World, error) {
	var w World
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadMeta reads only the header of a save.
func LoadMeta(name string) (SaveMeta, error) {
	var meta SaveMeta
	data, err := os.ReadFile(filepath.Join(SaveDir, name, metaFile))
	if err != nil {
		return meta, err
	}
	err = yaml.Unmarshal(data, &meta)
	return meta, err
}

// ListSessions returns the names of all saves under SaveDir.
func ListSessions() ([]string, error) {
	if _, err := os.Stat(SaveDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(SaveDir)
	if err != nil {
		return nil, err
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() {
			// The compressed world file marks a complete save.
			worldPath := filepath.Join(SaveDir, entry.Name(), worldFile)
			if _, err := os.Stat(worldPath); err == nil {
				sessions = append(sessions, entry.Name())
			}
		}
	}
	return sessions, nil
}
