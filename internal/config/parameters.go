package config

import (
	"path/filepath"
	"strings"
)

// Parameters are the resolved values a run operates on.
type Parameters struct {
	WorkingRoot      string
	ProcessingFolder string
	InputGeodatabase string
	OutputGDBName    string
	OutputXML        string
}

// OutputGDBPath is the full path of the output geodatabase container. The
// .gdb suffix is appended when the name lacks it, matching the container
// the create stage makes.
func (p Parameters) OutputGDBPath() string {
	name := p.OutputGDBName
	if !strings.EqualFold(filepath.Ext(name), ".gdb") {
		name += ".gdb"
	}
	return filepath.Join(p.ProcessingFolder, name)
}

// Pairs returns the parameters as ordered name/value pairs, in the order
// they are echoed to the operator.
func (p Parameters) Pairs() [][2]string {
	return [][2]string{
		{"CollGdbOuput", p.ProcessingFolder},
		{"CollGdbName", p.OutputGDBName},
		{"CollInput", p.InputGeodatabase},
		{"CollXmlOutput", p.OutputXML},
	}
}

// Resolve builds the run parameters from the configuration. When hosted,
// params[0] replaces the output geodatabase name and params[1] the input
// geodatabase path, verbatim, even when empty. A parameter the host did not
// pass keeps the configured value.
func Resolve(cfg *Config, hosted bool, params []string) Parameters {
	p := Parameters{
		WorkingRoot:      cfg.WorkingRoot,
		ProcessingFolder: cfg.ProcessingFolder,
		InputGeodatabase: cfg.InputGeodatabase,
		OutputGDBName:    cfg.OutputGDBName,
		OutputXML:        cfg.OutputXML,
	}

	if !hosted {
		return p
	}
	if len(params) > 0 {
		p.OutputGDBName = params[0]
	}
	if len(params) > 1 {
		p.InputGeodatabase = params[1]
	}
	return p
}
