// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/parley/internal/model"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileReadsText(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("line one\nline two\n"))

	att, err := File(path)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if att.Kind != model.AttachmentFile {
		t.Errorf("kind = %v", att.Kind)
	}
	if att.Name != "notes.txt" {
		t.Errorf("name = %q", att.Name)
	}
	if att.MimeType != "text/plain" {
		t.Errorf("mime = %q", att.MimeType)
	}
	if att.Data != "line one\nline two\n" {
		t.Errorf("data = %q", att.Data)
	}
}

func TestFileRejectsOversize(t *testing.T) {
	path := writeTemp(t, "big.txt", make([]byte, MaxFileSize+1))

	if _, err := File(path); err == nil {
		t.Fatal("expected size error")
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected stat error")
	}
}

func TestInlineFileText(t *testing.T) {
	att := model.Attachment{
		Kind: model.AttachmentFile,
		Name: "main.go",
		Data: "package main",
	}

	got := InlineFileText("Review this:", att)

	if !strings.HasPrefix(got, "Review this:") {
		t.Errorf("prompt missing: %q", got)
	}
	if !strings.Contains(got, "--- main.go ---\npackage main\n--- end ---") {
		t.Errorf("fence malformed: %q", got)
	}
}

func TestInlineFileTextTrailingNewline(t *testing.T) {
	att := model.Attachment{Name: "a.txt", Data: "content\n"}
	got := InlineFileText("p", att)
	if strings.Contains(got, "content\n\n--- end ---") {
		t.Errorf("doubled newline before fence: %q", got)
	}
}

func TestImageEncodesBase64(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	path := writeTemp(t, "shot.png", raw)

	att, err := Image(path)
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if att.Kind != model.AttachmentImage {
		t.Errorf("kind = %v", att.Kind)
	}
	if att.MimeType != "image/png" {
		t.Errorf("mime = %q", att.MimeType)
	}
	decoded, err := base64.StdEncoding.DecodeString(att.Data)
	if err != nil {
		t.Fatalf("data not base64: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Error("round trip mismatch")
	}
}

func TestImageMimeTypes(t *testing.T) {
	tests := []struct {
		ext  string
		mime string
	}{
		{".jpg", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".gif", "image/gif"},
		{".webp", "image/webp"},
		{".PNG", "image/png"}, // case-insensitive
	}
	for _, tt := range tests {
		path := writeTemp(t, "img"+tt.ext, []byte{0x00})
		att, err := Image(path)
		if err != nil {
			t.Fatalf("%s: %v", tt.ext, err)
		}
		if att.MimeType != tt.mime {
			t.Errorf("%s: mime = %q, want %q", tt.ext, att.MimeType, tt.mime)
		}
	}
}

func TestImageRejectsUnknownType(t *testing.T) {
	path := writeTemp(t, "doc.pdf", []byte{0x00})
	if _, err := Image(path); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestVoiceTrims(t *testing.T) {
	att := Voice("  turn on the lights  \n")
	if att.Kind != model.AttachmentVoice {
		t.Errorf("kind = %v", att.Kind)
	}
	if att.Data != "turn on the lights" {
		t.Errorf("data = %q", att.Data)
	}
}
