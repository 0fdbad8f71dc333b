package querylog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ValueType enumerates admin_settings.value_type (§6).
type ValueType string

const (
	ValueBool  ValueType = "bool"
	ValueInt   ValueType = "int"
	ValueFloat ValueType = "float"
	ValueJSON  ValueType = "json"
	ValueStr   ValueType = "str"
)

// ErrSettingNotFound is returned by GetSetting when key has no row.
var ErrSettingNotFound = errors.New("querylog: setting not found")

// Setting is one admin_settings row.
type Setting struct {
	Key         string
	Value       string
	Type        ValueType
	Description string
	UpdatedAt   time.Time
	UpdatedBy   int64
}

// GetSetting returns the raw stored value and its declared type.
func (s *Store) GetSetting(ctx context.Context, key string) (Setting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, value, value_type, description, updated_at, updated_by
		FROM admin_settings WHERE key = ?`, key)

	var st Setting
	var updatedAt int64
	var updatedBy sql.NullInt64
	err := row.Scan(&st.Key, &st.Value, &st.Type, &st.Description, &updatedAt, &updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, ErrSettingNotFound
	}
	if err != nil {
		return Setting{}, fmt.Errorf("querylog: get setting %s: %w", key, err)
	}
	st.UpdatedAt = time.Unix(updatedAt, 0)
	st.UpdatedBy = updatedBy.Int64
	return st, nil
}

// GetSettingBool is a typed convenience wrapper; def is returned if the
// key is absent.
func (s *Store) GetSettingBool(ctx context.Context, key string, def bool) (bool, error) {
	st, err := s.GetSetting(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return st.Value == "true" || st.Value == "1", nil
}

// GetSettingInt is a typed convenience wrapper; def is returned if the
// key is absent.
func (s *Store) GetSettingInt(ctx context.Context, key string, def int64) (int64, error) {
	st, err := s.GetSetting(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	v, err := strconv.ParseInt(st.Value, 10, 64)
	if err != nil {
		return def, fmt.Errorf("querylog: parse int setting %s: %w", key, err)
	}
	return v, nil
}

// PutSetting upserts key with a declared type and the admin who set it.
func (s *Store) PutSetting(ctx context.Context, key, value string, valueType ValueType, description string, updatedBy int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_settings (key, value, value_type, description, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			value_type = excluded.value_type,
			description = excluded.description,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		key, value, valueType, description, time.Now().Unix(), updatedBy,
	)
	if err != nil {
		return fmt.Errorf("querylog: put setting %s: %w", key, err)
	}
	return nil
}
