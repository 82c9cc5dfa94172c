package schema

import "errors"

// ServiceConfig defines defaults and limits for the binding service.
type ServiceConfig struct {
	// StateDir is where local drafts are stored. Empty disables draft
	// support; the service degrades silently without it.
	StateDir string
	// CopySuffix is appended to the document name on duplicate.
	CopySuffix string
	// NameMax bounds accepted document names.
	NameMax int
}

// DefaultCopySuffix is appended to duplicated document names.
const DefaultCopySuffix = " (copy)"

// DefaultNameMax is the default document name limit.
const DefaultNameMax = 120

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.CopySuffix == "" {
		cfg.CopySuffix = DefaultCopySuffix
	}
	if cfg.NameMax <= 0 {
		cfg.NameMax = DefaultNameMax
	}
	if cfg.NameMax <= len(cfg.CopySuffix) {
		return ServiceConfig{}, errors.New("name max must exceed copy suffix length")
	}
	return cfg, nil
}
