// SPDX-License-Identifier: MPL-2.0

package build

import "github.com/charmbracelet/log"

// Report logs the terminal outcome of every member once the whole
// workspace has been processed. Completion and skip lines are stable
// output consumed by users and CI scripts; failures additionally log the
// stage and wrapped cause.
func Report(logger *log.Logger, outcome *WorkspaceOutcome) {
	for _, o := range outcome.Outcomes {
		switch o.Status {
		case StatusSucceeded:
			logger.Info("Processing completed for package: " + o.Package)
		case StatusSkipped:
			msg := "Skipping driver package workflow for package: " + o.Package
			if o.SkipReason != "" {
				msg = o.SkipReason + ". " + msg
			}
			logger.Info(msg)
		case StatusFailed:
			logger.Error("Error packaging the package: "+o.Package, "stage", o.Stage, "error", o.Err)
		}
	}
}
