package core

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

var trackerExtensions = map[string]bool{
	"pdf": true, "png": true, "jpg": true, "jpeg": true,
	"xlsx": true, "xls": true, "csv": true,
	"doc": true, "docx": true, "txt": true,
}

// cleanPart collapses whitespace to "_" and drops anything outside [A-Za-z0-9_].
func cleanPart(s string) string {
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	s = nonWord.ReplaceAllString(s, "")
	if s == "" {
		return "NA"
	}
	return s
}

// Extension returns the lower-case extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// TrackerFileName builds "<code>_<task>_<user>_02-Jan-2006_03PM_<id>.<ext>". The
// id suffix keeps uploads within the same hour apart.
func TrackerFileName(projectCode, taskName, userName, original string, at time.Time) (string, error) {
	ext := Extension(original)
	if !trackerExtensions[ext] {
		return "", validationf("file type %q is not allowed", ext)
	}
	return strings.Join([]string{
		cleanPart(projectCode),
		cleanPart(taskName),
		cleanPart(userName),
		at.Format("02-Jan-2006_03PM"),
		uuid.NewString()[:8],
	}, "_") + "." + ext, nil
}

// ProjectFileName keeps the cleaned original name and makes it unique.
func ProjectFileName(original string) string {
	ext := filepath.Ext(original)
	base := cleanPart(strings.TrimSuffix(filepath.Base(original), ext))
	return base + "_" + uuid.NewString()[:8] + strings.ToLower(ext)
}
