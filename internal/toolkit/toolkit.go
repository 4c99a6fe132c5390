// =============================================================================
// Offline Geodatabase Converter - Geoprocessing Toolkit
// =============================================================================
//
// This module defines the geoprocessing toolkit the conversion pipeline runs
// against, and a local implementation backed by the geodatabase and
// xmlworkspace packages.
//
// TOOL MESSAGES:
//   Every tool call replaces the message queue. A successful call leaves:
//
//     Start Time: Thursday, June 27, 2019 10:15:03 AM
//     <tool messages>
//     Succeeded at Thursday, June 27, 2019 10:15:04 AM (Elapsed Time: 0.41 seconds)
//
//   A failed call leaves:
//
//     Start Time: Thursday, June 27, 2019 10:15:03 AM
//     ERROR 000732: geodatabase "C:/Temp/Input.geodatabase" not found
//     Failed to execute (ExportXMLWorkspaceDocument).
//
// =============================================================================

package toolkit

import (
	"context"
	"strings"

	"github.com/ginjaninja78/offline-gdb-converter/internal/xmlworkspace"
)

// Availability is the license state of an extension.
type Availability string

const (
	Available   Availability = "Available"
	Unavailable Availability = "Unavailable"
	NotLicensed Availability = "NotLicensed"
	Failed      Availability = "Failed"
)

// Message severities accepted by Messages.
const (
	SeverityAll     = 0
	SeverityWarning = 1
	SeverityError   = 2
)

// Env carries the environment settings of a tool call.
type Env struct {
	// OverwriteOutput lets tools replace existing outputs.
	OverwriteOutput bool
}

// Toolkit is the geoprocessing surface used by the conversion pipeline.
type Toolkit interface {
	// CheckExtension reports whether an extension can be checked out.
	CheckExtension(name string) Availability

	// CheckOutExtension obtains the extension's license for this process.
	CheckOutExtension(name string) error

	// CreateFileGDB creates an empty file geodatabase in folder.
	CreateFileGDB(ctx context.Context, folder, name string, env Env) error

	// ExportXMLWorkspaceDocument writes the input geodatabase to an XML
	// workspace document.
	ExportXMLWorkspaceDocument(ctx context.Context, input, output string, options xmlworkspace.ExportOptions, env Env) error

	// ImportXMLWorkspaceDocument loads an XML workspace document into the
	// target geodatabase.
	ImportXMLWorkspaceDocument(ctx context.Context, target, xmlPath string, options xmlworkspace.ImportOptions, env Env) error

	// Messages returns the queued messages of the last tool call at or
	// above severity, one per line.
	Messages(severity int) string
}

// message is one queued tool message.
type message struct {
	severity int
	text     string
}

// messageQueue holds the messages of the last tool call.
type messageQueue []message

func (q messageQueue) format(severity int) string {
	var lines []string
	for _, m := range q {
		if m.severity >= severity {
			lines = append(lines, m.text)
		}
	}
	return strings.Join(lines, "\n")
}
