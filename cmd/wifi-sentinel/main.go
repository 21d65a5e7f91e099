// Command wifi-sentinel sounds a GPIO buzzer when it sees wireless attack frames.
package main

import "github.com/oshokin/wifi-sentinel/cmd/wifi-sentinel/cmd"

func main() {
	cmd.Execute()
}
