// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach builds the pre-processed input payloads the session core
// consumes: file text, base64 images and recognized voice transcripts. The
// core knows nothing about file formats or speech grammars — only about the
// resulting string payloads produced here.
package attach

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/parley/internal/model"
)

// MaxFileSize is the maximum file size to attach (50KB).
const MaxFileSize = 50 * 1024

// imageMimeTypes maps image extensions to MIME types.
var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// =============================================================================
// FILE PAYLOADS
// =============================================================================

// File reads a text file into an attachment payload. Files above
// MaxFileSize are rejected rather than truncated.
func File(path string) (model.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return model.Attachment{}, fmt.Errorf("file %s too large: %d bytes (max %d)", path, info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return model.Attachment{
		Kind:     model.AttachmentFile,
		Name:     filepath.Base(path),
		MimeType: "text/plain",
		Data:     string(data),
	}, nil
}

// InlineFileText appends a file payload to an outgoing prompt, fenced so
// the model can tell prompt from content.
func InlineFileText(prompt string, att model.Attachment) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n--- ")
	b.WriteString(att.Name)
	b.WriteString(" ---\n")
	b.WriteString(att.Data)
	if !strings.HasSuffix(att.Data, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("--- end ---")
	return b.String()
}

// =============================================================================
// IMAGE PAYLOADS
// =============================================================================

// Image reads an image file into a base64 attachment payload.
func Image(path string) (model.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := imageMimeTypes[ext]
	if !ok {
		return model.Attachment{}, fmt.Errorf("unsupported image type: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return model.Attachment{
		Kind:     model.AttachmentImage,
		Name:     filepath.Base(path),
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// =============================================================================
// VOICE PAYLOADS
// =============================================================================

// Voice wraps an already-recognized transcript as an attachment payload.
// Recognition itself happens upstream; by the time text reaches the session
// core it is an ordinary string.
func Voice(transcript string) model.Attachment {
	return model.Attachment{
		Kind: model.AttachmentVoice,
		Data: strings.TrimSpace(transcript),
	}
}
