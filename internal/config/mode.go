package config

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rohankatakam/gitfolio/internal/storage"
)

// BackendMode selects where commit analysis runs
type BackendMode string

const (
	// BackendRemote delegates analysis to the GitFolio backend service
	BackendRemote BackendMode = "remote"
	// BackendDirect calls the LLM provider from this process
	BackendDirect BackendMode = "direct"
)

// ShouldUseRemoteBackend reads the useBackendApi setting. Only an explicit
// JSON false turns the remote backend off; an absent or unreadable value
// keeps the default of true.
func ShouldUseRemoteBackend(ctx context.Context, local storage.Store) (bool, error) {
	data, err := local.Get(ctx, storage.KeyUseBackendAPI)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	var flag bool
	if err := json.Unmarshal(data, &flag); err != nil {
		return true, nil
	}
	return flag, nil
}

// SelectBackendMode is ShouldUseRemoteBackend expressed as a BackendMode
func SelectBackendMode(ctx context.Context, local storage.Store) (BackendMode, error) {
	remote, err := ShouldUseRemoteBackend(ctx, local)
	if err != nil {
		return "", err
	}
	if remote {
		return BackendRemote, nil
	}
	return BackendDirect, nil
}
