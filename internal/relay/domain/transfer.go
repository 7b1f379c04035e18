package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultMimeType is used when the sender does not declare a content type.
	DefaultMimeType = "application/octet-stream"

	// MaxFileNameLength bounds the sanitized file name in bytes.
	MaxFileNameLength = 255

	// MaxTransferIDLength bounds transfer identifiers so they stay usable as keys and path segments.
	MaxTransferIDLength = 64
)

var transferIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var fileNameReplacer = strings.NewReplacer(
	":", " ",
	";", " ",
	"|", " ",
	"*", " ",
	"@", " ",
	"/", " ",
	"\\", " ",
)

// TransferID identifies one transfer. It is used both as a broker key and as a URL path segment.
type TransferID string

// Validate checks that the identifier is path-safe.
func (id TransferID) Validate() error {
	if len(id) == 0 || len(id) > MaxTransferIDLength || !transferIDPattern.MatchString(string(id)) {
		return NewTransferError(KindValidation, "Invalid transfer ID.", ErrInvalidTransferID)
	}
	return nil
}

func (id TransferID) String() string {
	return string(id)
}

// TransferKey addresses the per-session broker state of a transfer.
// Session namespacing keeps a dead session's late cleanup away from a newer session on the same ID.
type TransferKey struct {
	ID      TransferID
	Session string
}

func (k TransferKey) String() string {
	return fmt.Sprintf("%s/%s", k.ID, k.Session)
}

// FileMetadata describes the file being relayed. It is written once by the sender.
type FileMetadata struct {
	Name string `json:"file_name"`
	Size int64  `json:"file_size"`
	Type string `json:"file_type"`
}

// UnmarshalJSON accepts the short and long field spellings used by clients.
func (m *FileMetadata) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        *string `json:"name"`
		FileName    *string `json:"file_name"`
		Size        *int64  `json:"size"`
		FileSize    *int64  `json:"file_size"`
		Type        *string `json:"type"`
		FileType    *string `json:"file_type"`
		ContentType *string `json:"content_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = FileMetadata{}
	if v := firstString(raw.FileName, raw.Name); v != nil {
		m.Name = *v
	}
	if raw.FileSize != nil {
		m.Size = *raw.FileSize
	} else if raw.Size != nil {
		m.Size = *raw.Size
	}
	if v := firstString(raw.FileType, raw.Type, raw.ContentType); v != nil {
		m.Type = *v
	}
	return nil
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// Normalize returns a sanitized copy of the metadata, or a validation error.
func (m FileMetadata) Normalize() (FileMetadata, error) {
	name := strings.TrimSpace(fileNameReplacer.Replace(m.Name))
	name = strings.ToValidUTF8(name, "")
	if name == "" {
		return FileMetadata{}, NewTransferError(KindValidation, "File name is required.", ErrInvalidMetadata)
	}
	if len(name) > MaxFileNameLength {
		return FileMetadata{}, NewTransferError(KindValidation, "File name is too long.", ErrInvalidMetadata)
	}
	if m.Size <= 0 {
		return FileMetadata{}, NewTransferError(KindValidation, "File size must be positive.", ErrInvalidMetadata)
	}

	mimeType := strings.TrimSpace(m.Type)
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	return FileMetadata{Name: name, Size: m.Size, Type: mimeType}, nil
}

func (m FileMetadata) String() string {
	return fmt.Sprintf("%s (%s - %s)", m.Name, humanize.IBytes(uint64(max(m.Size, 0))), m.Type)
}

// TransferRecord is the metadata-store entry for a transfer.
type TransferRecord struct {
	ID        TransferID    `json:"id"`
	File      FileMetadata  `json:"file"`
	Session   string        `json:"session"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Key returns the broker key of the record's session.
func (r TransferRecord) Key() TransferKey {
	return TransferKey{ID: r.ID, Session: r.Session}
}
