// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/walrus-wm/walrus/cmd/walrus"

func main() {
	cmd.Execute()
}
