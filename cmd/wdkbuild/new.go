// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/svasista-ms/wdkbuild/internal/providers"
	"github.com/svasista-ms/wdkbuild/internal/scaffold"
)

var (
	newKmdf bool
	newUmdf bool
	newWdm  bool

	newCmd = &cobra.Command{
		Use:   "new [flags] <path>",
		Short: "Scaffold a new Windows driver crate",
		Long: `New creates a driver crate at the given path with the WDK metadata,
build script and INF template already wired up. Exactly one driver
model flag must be provided.`,
		Example: `  wdkbuild new --kmdf my-driver
  wdkbuild new --umdf drivers/usb-filter
  wdkbuild new --wdm legacy-driver`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runNew,
	}
)

func init() {
	newCmd.Flags().BoolVar(&newKmdf, "kmdf", false, "create a Kernel-Mode Driver Framework driver")
	newCmd.Flags().BoolVar(&newUmdf, "umdf", false, "create a User-Mode Driver Framework driver")
	newCmd.Flags().BoolVar(&newWdm, "wdm", false, "create a Windows Driver Model driver")
	newCmd.MarkFlagsOneRequired("kmdf", "umdf", "wdm")
	newCmd.MarkFlagsMutuallyExclusive("kmdf", "umdf", "wdm")
}

func runNew(_ *cobra.Command, args []string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	action := scaffold.NewAction(args[0], selectedKind(), providers.NewFS(), logger)
	if err := action.Run(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1}
	}

	fmt.Println(SuccessStyle.Render("Created driver crate: ") + CmdStyle.Render(args[0]))
	return nil
}

// selectedKind maps the model flags to a driver kind. Flag constraints
// guarantee exactly one is set.
func selectedKind() providers.DriverKind {
	switch {
	case newKmdf:
		return providers.KindKmdf
	case newUmdf:
		return providers.KindUmdf
	default:
		return providers.KindWdm
	}
}
