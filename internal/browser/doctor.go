// internal/browser/doctor.go
package browser

import (
	"os/exec"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/xkilldash9x/signup-cli/internal/config"
)

// Requirement is one executable a backend needs.
type Requirement struct {
	Name     string
	Path     string
	Found    bool
	Optional bool
	Hint     string
}

// Lookups used by Check. Replaced in tests.
var (
	lookPath       = exec.LookPath
	lookChromePath = launcher.LookPath
)

// Check lists the executables the configured backend needs and whether they resolve.
func Check(cfg *config.Config) []Requirement {
	switch cfg.Browser.Backend {
	case config.BackendChrome:
		return []Requirement{chromeRequirement(cfg, false)}
	case config.BackendRod:
		return []Requirement{chromeRequirement(cfg, true)}
	case config.BackendFirefox:
		driver := cfg.Browser.DriverPath
		if driver == "" {
			driver = "geckodriver"
		}
		return []Requirement{
			executable("firefox", cfg.Browser.Binary, "firefox",
				"Install Firefox or set browser.binary."),
			executable("geckodriver", driver, "",
				"Download geckodriver from github.com/mozilla/geckodriver/releases and set browser.driver_path."),
		}
	default:
		return nil
	}
}

// Ready reports whether every mandatory requirement was found.
func Ready(reqs []Requirement) bool {
	for _, r := range reqs {
		if !r.Found && !r.Optional {
			return false
		}
	}
	return true
}

func chromeRequirement(cfg *config.Config, optional bool) Requirement {
	hint := Remediation(config.BackendChrome)
	if optional {
		hint = "Not found locally. rod will download Chromium on first run."
	}
	if cfg.Browser.Binary != "" {
		r := executable("chrome", cfg.Browser.Binary, "", hint)
		r.Optional = optional
		return r
	}
	path, found := lookChromePath()
	return Requirement{Name: "chrome", Path: path, Found: found, Optional: optional, Hint: hint}
}

// executable resolves configured, falling back to fallback when configured is empty.
func executable(name, configured, fallback, hint string) Requirement {
	target := configured
	if target == "" {
		target = fallback
	}
	path, err := lookPath(target)
	if err != nil {
		return Requirement{Name: name, Path: target, Hint: hint}
	}
	return Requirement{Name: name, Path: path, Found: true, Hint: hint}
}
