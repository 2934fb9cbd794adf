// The main package for the crawler executable.
package main

import (
	"github.com/Riter/uni-informational-search/cmd"
)

func main() {
	cmd.Execute()
}
