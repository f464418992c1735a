package projects

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	snapshotFileNameTemplateConstant     = "%s_projects_skeleton.txt"
	snapshotIndentConstant               = "    "
	snapshotDirectoryPermissionsConstant = 0o755
	snapshotFilePermissionsConstant      = 0o644
	snapshotEncodeErrorTemplateConstant  = "encode %s snapshot: %w"
	snapshotWriteErrorTemplateConstant   = "write %s snapshot: %w"
)

// SnapshotWriter dumps raw host records to <output directory>/<label>_projects_skeleton.txt.
type SnapshotWriter struct {
	outputDirectory string
}

// NewSnapshotWriter constructs a writer rooted at outputDirectory.
func NewSnapshotWriter(outputDirectory string) *SnapshotWriter {
	return &SnapshotWriter{outputDirectory: outputDirectory}
}

// SnapshotPath returns the file a label is written to.
func (writer *SnapshotWriter) SnapshotPath(label string) string {
	return filepath.Join(writer.outputDirectory, fmt.Sprintf(snapshotFileNameTemplateConstant, label))
}

// Write serializes the raw record of each descriptor, in order, as JSON indented by four spaces.
// Descriptors without a raw record are written as themselves.
func (writer *SnapshotWriter) Write(label string, descriptors []Descriptor) error {
	records := make([]any, 0, len(descriptors))
	for _, descriptor := range descriptors {
		if descriptor.Raw != nil {
			records = append(records, descriptor.Raw)
			continue
		}
		records = append(records, descriptor)
	}

	encodedRecords, encodeError := json.MarshalIndent(records, "", snapshotIndentConstant)
	if encodeError != nil {
		return fmt.Errorf(snapshotEncodeErrorTemplateConstant, label, encodeError)
	}

	if len(strings.TrimSpace(writer.outputDirectory)) > 0 {
		if directoryError := os.MkdirAll(writer.outputDirectory, snapshotDirectoryPermissionsConstant); directoryError != nil {
			return fmt.Errorf(snapshotWriteErrorTemplateConstant, label, directoryError)
		}
	}

	if writeError := os.WriteFile(writer.SnapshotPath(label), encodedRecords, snapshotFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(snapshotWriteErrorTemplateConstant, label, writeError)
	}
	return nil
}

// Publish sorts the descriptors by name and records the snapshot. A nil writer only sorts.
func Publish(host string, label string, descriptors []Descriptor, writer *SnapshotWriter) ([]Descriptor, error) {
	SortByName(descriptors)
	if writer == nil {
		return descriptors, nil
	}
	if snapshotError := writer.Write(label, descriptors); snapshotError != nil {
		return nil, ListingError{Host: host, Cause: snapshotError}
	}
	return descriptors, nil
}
