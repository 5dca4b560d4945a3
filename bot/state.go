// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/matrixbot/lib/codec"
	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// stateVersion is written into every state file. Load rejects files
// with a different version.
const stateVersion = 1

// cursorState is the on-disk form of a StateStore file.
type cursorState struct {
	Version int `cbor:"version"`

	// Positions maps room IDs to since tokens.
	Positions map[string]string `cbor:"positions"`
}

// StateStore persists each room's sync position in one CBOR file.
//
// Writes are atomic (temporary file, fsync, rename): after a crash the
// file holds either the previous positions or the new ones. Positions
// are only ever saved after the events before them were handled, so a
// crash can redeliver the last pass but never skip one.
type StateStore struct {
	path string
}

// NewStateStore returns a store backed by path. The file need not
// exist; the parent directory must.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the backing file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load returns the saved positions. A missing file is an empty map,
// not an error.
func (s *StateStore) Load() (map[ref.RoomID]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[ref.RoomID]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bot: reading state file: %w", err)
	}

	var state cursorState
	if err := codec.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("bot: parsing state file %s: %w", s.path, err)
	}
	if state.Version != stateVersion {
		return nil, fmt.Errorf("bot: state file %s has version %d, want %d", s.path, state.Version, stateVersion)
	}

	positions := make(map[ref.RoomID]string, len(state.Positions))
	for rawRoomID, since := range state.Positions {
		roomID, err := ref.ParseRoomID(rawRoomID)
		if err != nil {
			return nil, fmt.Errorf("bot: state file %s: %w", s.path, err)
		}
		if since != "" {
			positions[roomID] = since
		}
	}
	return positions, nil
}

// Save atomically replaces the saved positions. Rooms with an empty
// position are left out.
func (s *StateStore) Save(positions map[ref.RoomID]string) error {
	state := cursorState{
		Version:   stateVersion,
		Positions: make(map[string]string, len(positions)),
	}
	for roomID, since := range positions {
		if since != "" {
			state.Positions[roomID.String()] = since
		}
	}

	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("bot: encoding state: %w", err)
	}

	temporaryPath := s.path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("bot: creating temporary state file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("bot: writing temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("bot: syncing temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("bot: closing temporary state file: %w", err)
	}

	if err := os.Rename(temporaryPath, s.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("bot: renaming state file into place: %w", err)
	}

	// Make the rename durable across power loss.
	if directory, err := os.Open(filepath.Dir(s.path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}
