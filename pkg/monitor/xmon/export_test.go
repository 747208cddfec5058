package xmon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func todayExportName() string {
	return fmt.Sprintf("metrics-%s.json", time.Now().Format("2006-01-02"))
}

func TestExport_WritesDatedSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ExportPath = dir
	e := New(cfg)

	id := e.StartOperation("save-note", nil)
	e.EndOperation(id, true, nil)

	e.export(context.Background())

	data, err := os.ReadFile(filepath.Join(dir, todayExportName()))
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(data, &snap))
	ops, ok := snap["operations"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, ops, "save-note")
}

func TestExport_SameDayOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ExportPath = dir
	e := New(cfg)

	e.export(context.Background())
	e.export(context.Background())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExport_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "metrics")
	cfg := DefaultConfig()
	cfg.ExportPath = dir
	e := New(cfg)

	e.export(context.Background())

	_, err := os.Stat(filepath.Join(dir, todayExportName()))
	assert.NoError(t, err)
}

func TestExport_EmptyPathNoop(t *testing.T) {
	e := New(DefaultConfig())
	assert.NotPanics(t, func() {
		e.export(context.Background())
	})
}

func TestExport_RetriesThenSucceeds(t *testing.T) {
	orig := writeFile
	defer func() { writeFile = orig }()

	var calls int
	writeFile = func(name string, data []byte, perm os.FileMode) error {
		calls++
		if calls < 3 {
			return errors.New("transient io error")
		}
		return orig(name, data, perm)
	}

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ExportPath = dir
	e := New(cfg)

	e.export(context.Background())

	assert.Equal(t, 3, calls)
	_, err := os.Stat(filepath.Join(dir, todayExportName()))
	assert.NoError(t, err)
}

func TestExport_FailureSwallowed(t *testing.T) {
	orig := writeFile
	defer func() { writeFile = orig }()

	var calls int
	writeFile = func(name string, data []byte, perm os.FileMode) error {
		calls++
		return errors.New("disk full")
	}

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ExportPath = dir
	e := New(cfg)

	assert.NotPanics(t, func() {
		e.export(context.Background())
	})
	assert.Equal(t, 3, calls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
