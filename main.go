// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/xblaunpack/xblaunpack/cmd/xblaunpack"

func main() {
	cmd.Execute()
}
