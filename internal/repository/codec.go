package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"arcade/internal/models"
	"arcade/internal/store"
)

func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

func decodeJSON(path string, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func encodeUint(n uint64) []byte {
	return []byte(strconv.FormatUint(n, 10))
}

func decodeUint(path string, raw []byte) (uint64, error) {
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return n, nil
}

func encodeInt(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

func decodeInt(path string, raw []byte) (int64, error) {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return n, nil
}

func decodeProfile(path string, raw []byte) (*models.Profile, error) {
	var p models.Profile
	if err := decodeJSON(path, raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeRequest(path string, raw []byte) (*models.FriendRequest, error) {
	var r models.FriendRequest
	if err := decodeJSON(path, raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// storeError passes domain errors through and reports every other store
// failure as Unavailable.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var decodeErr *strconv.NumError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &decodeErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return err
	}
	return models.NewUnavailableError(err)
}

// isAbsent reports whether err is the store's not-found result.
func isAbsent(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
