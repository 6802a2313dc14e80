// main.go
package main

import (
	"fmt"

	"github.com/braydio/RSAssistant-sub000/cmd"
)

const banner = `
  __________  _________      _____                 .__          __
  \______   \/   _____/     /  _  \   ______ _____ |__| _______/  |______    ____   ____
   |       _/\_____  \     /  /_\  \ /  ___//  ___/|  |/  ___/\   __\__  \  /    \_/ __ \
   |    |   \/        \   /    |    \\___ \ \___ \ |  |\___ \  |  |  / __ \|   |  \  ___/
   |____|_  /_______  /   \____|__  /____  >____  >|__/____  > |__| (____  /___|  /\___  >
          \/        \/            \/     \/     \/         \/            \/     \/     \/

      Reverse-split assistant -- colour flips in, scheduled orders out
[]=========================================================================================[]
`

func main() {
	// Explicitly print banner FIRST
	fmt.Print(banner + "\n")

	cmd.Execute()
}
