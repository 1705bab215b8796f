package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// debounceWarnThreshold is the settle window above which reruns feel sluggish.
const debounceWarnThreshold = 5 * time.Second

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("config warning: %s: %s", w.Field, w.Message)
}

// ValidationResults holds the results of configuration validation.
type ValidationResults struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are validation errors.
func (r ValidationResults) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (r ValidationResults) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// ErrorMessage returns a combined error message for all validation errors.
func (r ValidationResults) ErrorMessage() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// WriteWarnings writes all warnings to the given writer.
func (r ValidationResults) WriteWarnings(w io.Writer) {
	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintln(w, warn.String())
	}
}

func (r *ValidationResults) addError(field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the configuration for errors and warnings.
// It returns errors for invalid values that would cause runtime issues,
// and warnings for issues that can be safely ignored.
func (c *Config) Validate() ValidationResults {
	var result ValidationResults

	if strings.TrimSpace(c.Command) == "" {
		result.addError("command", "must not be empty")
	}

	if c.Ext == "" || !strings.HasPrefix(c.Ext, ".") {
		result.addError("ext", "invalid suffix %q, must start with a dot", c.Ext)
	}

	switch {
	case c.Debounce < 0:
		result.addError("debounce", "must not be negative, got %s", c.Debounce)
	case c.Debounce > debounceWarnThreshold:
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "debounce",
			Message: fmt.Sprintf("%s delays every run by at least that long", c.Debounce),
		})
	}

	if c.ClearLines < 0 {
		result.addError("clear_lines", "must not be negative, got %d", c.ClearLines)
	}

	for _, pattern := range c.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			result.addError("ignore", "invalid pattern %q: %v", pattern, err)
		}
	}

	for _, assignment := range c.Env {
		if key, _, ok := strings.Cut(assignment, "="); !ok || key == "" {
			result.addError("env", "invalid assignment %q, must be KEY=VALUE", assignment)
		}
	}

	return result
}
