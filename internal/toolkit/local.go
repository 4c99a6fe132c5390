package toolkit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/ginjaninja78/offline-gdb-converter/internal/geodatabase"
	"github.com/ginjaninja78/offline-gdb-converter/internal/xmlworkspace"
)

var logger = loggo.GetLogger("offlinegdb.toolkit")

const timeLayout = "Monday, January 2, 2006 3:04:05 PM"

// knownExtensions maps the extension names the local toolkit recognises to
// their product titles. Anything else fails the license check outright.
var knownExtensions = map[string]string{
	"spatial":      "Spatial Analyst",
	"3d":           "3D Analyst",
	"network":      "Network Analyst",
	"geostats":     "Geostatistical Analyst",
	"datareviewer": "Data Reviewer",
	"schematics":   "Schematics",
	"tracking":     "Tracking Analyst",
}

// ExtensionTitle returns the product title of an extension, e.g.
// "Spatial Analyst" for "Spatial", or name itself when it is unknown.
func ExtensionTitle(name string) string {
	if title, ok := knownExtensions[strings.ToLower(strings.TrimSpace(name))]; ok {
		return title
	}
	return name
}

// Error codes reported in tool messages.
const (
	codeNotFound      = 732
	codeAlreadyExists = 258
	codeNotValid      = 800
	codeNotLicensed   = 824
	codeUnexpected    = 999999
)

// Local runs the toolkit's tools in process.
type Local struct {
	mu       sync.Mutex
	licensed map[string]bool
	messages messageQueue

	// now is replaced in tests.
	now func() time.Time
}

// NewLocal returns a toolkit licensed for the named extensions.
func NewLocal(licensed []string) *Local {
	l := &Local{
		licensed: make(map[string]bool),
		now:      time.Now,
	}
	for _, name := range licensed {
		l.licensed[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return l
}

var _ Toolkit = (*Local)(nil)

// =============================================================================
// LICENSING
// =============================================================================

// CheckExtension reports Available for licensed extensions, NotLicensed for
// known but unlicensed ones and Failed for names it does not recognise.
func (l *Local) CheckExtension(name string) Availability {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availability(name)
}

func (l *Local) availability(name string) Availability {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case l.licensed[key]:
		return Available
	case knownExtensions[key] != "":
		return NotLicensed
	}
	return Failed
}

// CheckOutExtension checks the extension out. Checking out an extension
// twice is not an error.
func (l *Local) CheckOutExtension(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = nil
	if status := l.availability(name); status != Available {
		l.add(SeverityError, fmt.Sprintf("ERROR %06d: The %s extension is not available (%s).", codeNotLicensed, name, status))
		return errors.NotSupportedf("extension %q (%s)", name, status)
	}
	logger.Debugf("checked out extension %q", name)
	return nil
}

// =============================================================================
// TOOLS
// =============================================================================

// CreateFileGDB creates an empty file geodatabase named name in folder.
func (l *Local) CreateFileGDB(ctx context.Context, folder, name string, env Env) error {
	return l.execute(ctx, "CreateFileGDB", func() error {
		gdb, err := geodatabase.CreateFile(folder, name, env.OverwriteOutput)
		if err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(gdb.Close())
	})
}

// ExportXMLWorkspaceDocument exports the geodatabase at input to the XML
// workspace document at output.
func (l *Local) ExportXMLWorkspaceDocument(ctx context.Context, input, output string, options xmlworkspace.ExportOptions, env Env) error {
	return l.execute(ctx, "ExportXMLWorkspaceDocument", func() error {
		gdb, err := geodatabase.Open(input)
		if err != nil {
			return errors.Trace(err)
		}
		defer gdb.Close()

		summary, err := xmlworkspace.Export(ctx, gdb, output, options, env.OverwriteOutput)
		if err != nil {
			return errors.Trace(err)
		}
		l.add(SeverityAll, fmt.Sprintf("Exported %d datasets (%d records).", summary.Datasets, summary.Records))
		return nil
	})
}

// ImportXMLWorkspaceDocument imports the document at xmlPath into the
// geodatabase at target.
func (l *Local) ImportXMLWorkspaceDocument(ctx context.Context, target, xmlPath string, options xmlworkspace.ImportOptions, env Env) error {
	return l.execute(ctx, "ImportXMLWorkspaceDocument", func() error {
		gdb, err := geodatabase.Open(target)
		if err != nil {
			return errors.Trace(err)
		}
		defer gdb.Close()

		summary, err := xmlworkspace.Import(ctx, gdb, xmlPath, options, env.OverwriteOutput)
		if err != nil {
			return errors.Trace(err)
		}
		l.add(SeverityAll, fmt.Sprintf("Imported %d datasets (%d records).", summary.Datasets, summary.Records))
		return nil
	})
}

// Messages returns the messages of the last tool call.
func (l *Local) Messages(severity int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.messages.format(severity)
}

// execute runs one tool, replacing the message queue with its messages.
func (l *Local) execute(ctx context.Context, tool string, run func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = nil
	start := l.now()
	l.add(SeverityAll, "Start Time: "+start.Format(timeLayout))
	logger.Debugf("executing %s", tool)

	err := ctx.Err()
	if err == nil {
		err = run()
	}
	if err != nil {
		l.add(SeverityError, fmt.Sprintf("ERROR %06d: %v", errorCode(err), err))
		l.add(SeverityError, fmt.Sprintf("Failed to execute (%s).", tool))
		return errors.Annotatef(err, "executing %s", tool)
	}

	end := l.now()
	l.add(SeverityAll, fmt.Sprintf("Succeeded at %s (Elapsed Time: %.2f seconds)",
		end.Format(timeLayout), end.Sub(start).Seconds()))
	return nil
}

// add queues a message. The caller holds mu.
func (l *Local) add(severity int, text string) {
	l.messages = append(l.messages, message{severity: severity, text: text})
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, errors.NotFound):
		return codeNotFound
	case errors.Is(err, errors.AlreadyExists):
		return codeAlreadyExists
	case errors.Is(err, errors.NotValid):
		return codeNotValid
	}
	return codeUnexpected
}
