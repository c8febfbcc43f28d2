package logging

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/f3xlab/fieldsync/internal/config"
)

func TestBuffer_DropsOldest(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Add(Entry{Level: "info", Message: fmt.Sprintf("m%d", i)})
	}

	entries := b.Entries(nil)
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Message != "m2" || entries[2].Message != "m4" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestBuffer_FilterByLevel(t *testing.T) {
	b := NewBuffer(10)
	b.Add(Entry{Level: "info", Message: "a"})
	b.Add(Entry{Level: "error", Message: "b"})
	b.Add(Entry{Level: "warn", Message: "c"})

	got := b.Entries([]string{"ERROR", "warn"})
	if len(got) != 2 || got[0].Message != "b" {
		t.Errorf("Entries = %+v", got)
	}

	b.Clear()
	if len(b.Entries(nil)) != 0 {
		t.Error("Clear left entries")
	}
}

func TestNewWithWriter_FeedsBuffer(t *testing.T) {
	buf := NewBuffer(10)
	var console bytes.Buffer
	logger := NewWithWriter(config.LogConfig{Level: "info"}, &console, buf)

	linkLogger := Component(logger, "link")
	linkLogger.Error().Err(errors.New("timeout")).Msg("fetch dropped")
	logger.Debug().Msg("filtered out")

	entries := buf.Entries(nil)
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want 1", entries)
	}
	e := entries[0]
	if e.Level != "error" || e.Component != "link" || e.Message != "fetch dropped: timeout" {
		t.Errorf("entry = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp not parsed")
	}
	if console.Len() == 0 {
		t.Error("console writer received nothing")
	}
}

func TestNew_ConsoleLines(t *testing.T) {
	buf := NewBuffer(10)
	var out bytes.Buffer
	logger := New(config.LogConfig{Level: "debug"}, &out, buf)

	logger.Info().Str("id", "id_speed").Msg("value set")

	if !strings.Contains(out.String(), "value set") || strings.HasPrefix(out.String(), "{") {
		t.Errorf("console output = %q, want a human-readable line", out.String())
	}
	if entries := buf.Entries(nil); len(entries) != 1 || entries[0].Message != "value set" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestBuffer_WriteRawLine(t *testing.T) {
	b := NewBuffer(2)
	b.Write([]byte("plain text\n"))
	b.Write([]byte("   \n"))

	entries := b.Entries(nil)
	if len(entries) != 1 || entries[0].Message != "plain text" {
		t.Errorf("entries = %+v", entries)
	}
}
