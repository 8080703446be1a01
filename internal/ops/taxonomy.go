/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package ops

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// CommandClassification is the group and category a command must carry.
type CommandClassification struct {
	Group    CommandGroup
	Category CommandCategory
}

// Taxonomy lists the commands every build must register and which
// categories each group may use.
type Taxonomy struct {
	Core    map[string]CommandClassification
	Allowed map[CommandGroup][]CommandCategory
}

// DefaultTaxonomy describes the licensebanner command set.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Core: map[string]CommandClassification{
			"build":   {Group: GroupBundle, Category: CategoryBundling},
			"scan":    {Group: GroupBundle, Category: CategoryReporting},
			"version": {Group: GroupSupport, Category: CategoryInformation},
		},
		Allowed: map[CommandGroup][]CommandCategory{
			GroupBundle:  {CategoryBundling, CategoryReporting},
			GroupSupport: {CategoryInformation},
		},
	}
}

// Severity ranks validation findings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARNING"
}

// Finding is one taxonomy problem.
type Finding struct {
	Severity Severity
	Command  string
	Message  string
}

func (f Finding) Error() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Command, f.Message)
}

// Validate checks r against the taxonomy. Errors sort before warnings,
// then by command name. Commands outside Core only produce a warning.
func (t Taxonomy) Validate(r *Registry) []Finding {
	var findings []Finding
	add := func(sev Severity, command, format string, args ...any) {
		findings = append(findings, Finding{Severity: sev, Command: command, Message: fmt.Sprintf(format, args...)})
	}

	for name, want := range t.Core {
		got, ok := r.GetCommand(name)
		switch {
		case !ok:
			add(SeverityError, name, "core command is not registered")
		case got.Group != want.Group:
			add(SeverityError, name, "registered in group %s, expected %s", got.Group, want.Group)
		case got.Category != want.Category:
			add(SeverityError, name, "registered in category %s, expected %s", got.Category, want.Category)
		}
	}

	for name, reg := range r.GetAllCommands() {
		allowed, known := t.Allowed[reg.Group]
		if !known {
			add(SeverityError, name, "unknown group %s", reg.Group)
		} else if !slices.Contains(allowed, reg.Category) {
			add(SeverityError, name, "category %s is not allowed in group %s", reg.Category, reg.Group)
		}
		if _, core := t.Core[name]; !core {
			add(SeverityWarning, name, "not part of the core command set")
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity < findings[j].Severity
		}
		if findings[i].Command != findings[j].Command {
			return findings[i].Command < findings[j].Command
		}
		return findings[i].Message < findings[j].Message
	})
	return findings
}

// Errors returns the findings with SeverityError.
func Errors(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Summary renders findings one per line for logs and test failures.
func Summary(findings []Finding) string {
	if len(findings) == 0 {
		return "taxonomy ok"
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = f.Error()
	}
	return strings.Join(lines, "\n")
}
