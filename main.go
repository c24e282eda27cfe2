// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/gitfleet/cmd/gitfleet"

var execute = gitfleet.Execute

func main() {
	execute()
}
