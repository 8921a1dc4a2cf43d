package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// devBuild marks an unreleased engine or a config written against one.
const devBuild = "main"

// CheckVersionCompatibility reports whether an engine at engineVersion can run
// a backtest config whose engine_version is configVersion.
//
// Major and minor must match, patch, prerelease and build metadata may differ.
// A "main" on either side skips the check. A leading "v" is ignored.
func CheckVersionCompatibility(engineVersion, configVersion string) error {
	if isDevBuild(engineVersion) || isDevBuild(configVersion) {
		return nil
	}

	engine, err := parse("engine", engineVersion)
	if err != nil {
		return err
	}

	config, err := parse("config", configVersion)
	if err != nil {
		return err
	}

	switch {
	case engine.Major() != config.Major():
		return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: engine is %d.x.x but config requires %d.x.x",
			engine.Major(), config.Major())
	case engine.Minor() != config.Minor():
		return errors.Newf(errors.ErrCodeVersionMismatch, "minor version mismatch: engine is %d.%d.x but config requires %d.%d.x",
			engine.Major(), engine.Minor(), config.Major(), config.Minor())
	}

	return nil
}

func isDevBuild(v string) bool {
	return strings.TrimPrefix(v, "v") == devBuild
}

func parse(kind, v string) (*semver.Version, error) {
	trimmed := strings.TrimPrefix(v, "v")

	parsed, err := semver.NewVersion(trimmed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid %s version '%s'", kind, trimmed)
	}

	return parsed, nil
}
