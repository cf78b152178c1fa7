package config

import (
	"os"
	"strings"
)

// StrictReportImmutability enables office-validation guardrails:
// daily reports cannot be edited after they have been validated by the office;
// corrections must go through a new report.
//
// Set via env:
// - STRICT_REPORT_IMMUTABLE=true
func StrictReportImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_REPORT_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// ArchiveImportWorkbooks controls whether every ingested workbook is copied
// to cloud storage before parsing. Disable locally when no bucket is configured.
//
// Set via env:
// - ARCHIVE_IMPORT_WORKBOOKS=false (default true)
func ArchiveImportWorkbooks() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ARCHIVE_IMPORT_WORKBOOKS")))
	if v == "" {
		return true
	}
	return v != "0" && v != "false" && v != "no" && v != "n"
}
