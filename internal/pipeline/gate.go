package pipeline

import (
	"github.com/juju/errors"

	"github.com/ginjaninja78/offline-gdb-converter/internal/hosting"
	"github.com/ginjaninja78/offline-gdb-converter/internal/toolkit"
)

// ErrCapabilityUnavailable is returned by Gate when the required extension
// cannot be checked out.
const ErrCapabilityUnavailable = errors.ConstError("required extension unavailable")

// Gate checks out the named extension. When it is not available the
// operator is told so, the toolkit's queued messages follow, and an error
// satisfying errors.Is(err, ErrCapabilityUnavailable) is returned. The
// caller decides the exit status.
func Gate(tk toolkit.Toolkit, sink hosting.Sink, extension string) error {
	status := tk.CheckExtension(extension)
	if status == toolkit.Available {
		sink.Message("Checking out " + extension)
		err := tk.CheckOutExtension(extension)
		if err == nil {
			return nil
		}
		logger.Warningf("check out of %q failed: %v", extension, err)
		status = toolkit.Unavailable
	}

	sink.Error("Unable to get " + toolkit.ExtensionTitle(extension) + " extension")
	sink.Message(tk.Messages(toolkit.SeverityAll))
	return errors.WithType(
		errors.Errorf("extension %q is %s", extension, status),
		ErrCapabilityUnavailable,
	)
}
