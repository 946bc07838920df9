// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/svasista-ms/wdkbuild/cmd/wdkbuild"

func main() {
	cmd.Execute()
}
