package javadeps

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
)

const ruleWidth = 70

// Print renders a human-readable analysis report. Color codes are
// emitted according to gookit's global color support detection.
func (r *Result) Print(w io.Writer) {
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	fmt.Fprintf(w, "\n%s\n", color.Bold.Sprint("Java Dependency Analysis Report"))
	fmt.Fprintf(w, "%s\n\n", heavy)
	fmt.Fprintf(w, "Project Directory: %s\n", r.ProjectDir)
	fmt.Fprintf(w, "Build Type: %s\n", color.Cyan.Sprint(r.BuildType))
	fmt.Fprintf(w, "Current Java Version: %s\n", color.Yellow.Sprint(r.CurrentVersion))
	fmt.Fprintf(w, "Target Java Version: %s\n\n", color.Green.Sprint(r.TargetVersion))
	fmt.Fprintf(w, "Found %d dependencies\n\n", r.TotalDependencies)

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "%s\n", color.Yellow.Sprintf("Warning: %s", warning))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
	}

	if len(r.CompatibilityIssues) > 0 {
		fmt.Fprintf(w, "%s\n%s\n", redBold("⚠ Compatibility Issues (%d)", len(r.CompatibilityIssues)), light)
		for _, issue := range r.CompatibilityIssues {
			fmt.Fprintf(w, "%s %s\n", color.Red.Sprint("✗"), issue.Dependency)
			fmt.Fprintf(w, "  Current: %s | Required: %s or higher\n", issue.CurrentVersion, issue.MinVersion)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n\n", color.Green.Sprint("✓ No compatibility issues found"))
	}

	if len(r.RemovedModules) > 0 {
		fmt.Fprintf(w, "%s\n%s\n", yellowBold("⚠ Missing Dependencies for Removed JDK Modules (%d)", len(r.RemovedModules)), light)
		fmt.Fprintf(w, "Java %s removed these modules from the JDK.\n", r.TargetVersion)
		fmt.Fprintf(w, "Add explicit dependencies if your code uses them:\n\n")
		for _, module := range r.RemovedModules {
			fmt.Fprintf(w, "%s %s\n", color.Yellow.Sprint("!"), module)
		}
		fmt.Fprintln(w)
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(w, "%s\n%s\n", cyanBold("💡 Recommendations (%d)", len(r.Recommendations)), light)
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "%s %s\n", color.Cyan.Sprint("→"), rec.Dependency)
			fmt.Fprintf(w, "  Current: %s | Recommended: %s\n", rec.CurrentVersion, rec.RecommendedVersion)
			fmt.Fprintf(w, "  Reason: %s\n", rec.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s\n%s\n", color.Bold.Sprint("Summary"), light)
	fmt.Fprintf(w, "Critical Issues: %s\n", color.Red.Sprint(len(r.CompatibilityIssues)))
	fmt.Fprintf(w, "Missing JDK Module Dependencies: %s\n", color.Yellow.Sprint(len(r.RemovedModules)))
	fmt.Fprintf(w, "Upgrade Recommendations: %s\n\n", color.Cyan.Sprint(len(r.Recommendations)))
}

func redBold(format string, args ...interface{}) string {
	return color.New(color.FgRed, color.OpBold).Sprintf(format, args...)
}

func yellowBold(format string, args ...interface{}) string {
	return color.New(color.FgYellow, color.OpBold).Sprintf(format, args...)
}

func cyanBold(format string, args ...interface{}) string {
	return color.New(color.FgCyan, color.OpBold).Sprintf(format, args...)
}
