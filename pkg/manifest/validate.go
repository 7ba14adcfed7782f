package manifest

import (
	"errors"
	"fmt"

	"github.com/morezero/script-bridge/pkg/codec"
	"github.com/morezero/script-bridge/pkg/semver"
)

const validateLogPrefix = "manifest:validate"

// Validate checks bridge names, versions, aliases and the protocol range.
func (m *Manifest) Validate() error {
	var errs []error

	if m.ErrorBridge != "" && !codec.IsIdentifier(m.ErrorBridge) {
		errs = append(errs, fmt.Errorf("%s - errorBridge %q is not an identifier", validateLogPrefix, m.ErrorBridge))
	}
	if m.PostMethod != "" && !codec.IsIdentifier(m.PostMethod) {
		errs = append(errs, fmt.Errorf("%s - postMethod %q is not an identifier", validateLogPrefix, m.PostMethod))
	}
	if m.Protocol != "" {
		if _, err := semver.Satisfies(semver.DefaultVersion, m.Protocol); err != nil {
			errs = append(errs, fmt.Errorf("%s - invalid protocol range: %w", validateLogPrefix, err))
		}
	}

	for name, entry := range m.Bridges {
		if !codec.IsIdentifier(name) {
			errs = append(errs, fmt.Errorf("%s - bridge name %q is not an identifier", validateLogPrefix, name))
		}
		if entry.Version != "" {
			if err := semver.ValidateVersion(entry.Version); err != nil {
				errs = append(errs, fmt.Errorf("%s - bridge %s: %w", validateLogPrefix, name, err))
			}
		}
	}

	for alias, target := range m.Aliases {
		if alias == target {
			errs = append(errs, fmt.Errorf("%s - alias %q points at itself", validateLogPrefix, alias))
		}
	}

	return errors.Join(errs...)
}
